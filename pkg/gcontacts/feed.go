package gcontacts

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

type feedEmail struct {
	Primary bool   `xml:"primary,attr"`
	Rel     string `xml:"rel,attr"`
	Address string `xml:"address,attr"`
}

type feedEntry struct {
	ID    string      `xml:"id"`
	Title string      `xml:"title"`
	Email []feedEmail `xml:"email"`
}

type feedDoc struct {
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Updated string      `xml:"updated"`
	Entry   []feedEntry `xml:"entry"`
}

// Contact is one feed entry. Name is the display name, empty when the entry
// had no title. Emails always has at least one address.
type Contact struct {
	Name   string
	Emails []string
}

// Feed is one fetched page of the contact feed, entries in document order.
type Feed struct {
	Contacts []Contact

	updatedRaw string
	updateOnce sync.Once
	updated    time.Time
	updatedErr error
}

// parseFeed decodes the feed XML. Entries without any addressed email
// element are dropped; an email element without an address attribute does
// not count.
func parseFeed(b []byte) (*Feed, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.CharsetReader = charset.NewReaderLabel
	var doc feedDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding contacts XML")
	}
	f := &Feed{updatedRaw: doc.Updated}
	for _, e := range doc.Entry {
		var emails []string
		for _, em := range e.Email {
			if em.Address != "" {
				emails = append(emails, em.Address)
			}
		}
		if len(emails) == 0 {
			continue
		}
		f.Contacts = append(f.Contacts, Contact{Name: e.Title, Emails: emails})
	}
	return f, nil
}

// UpdatedRaw returns the feed-level updated element text, "" when missing.
func (f *Feed) UpdatedRaw() string { return f.updatedRaw }

// Updated parses the feed timestamp on first call and caches the result.
func (f *Feed) Updated() (time.Time, error) {
	f.updateOnce.Do(func() {
		if f.updatedRaw == "" {
			return
		}
		f.updated, f.updatedErr = time.Parse(time.RFC3339, f.updatedRaw)
	})
	return f.updated, f.updatedErr
}

// Addresses renders every contact email in "Name <email>" format, or the
// bare address when the contact has no name.
func (f *Feed) Addresses() []string {
	var ret []string
	for _, c := range f.Contacts {
		for _, e := range c.Emails {
			if c.Name != "" {
				ret = append(ret, fmt.Sprintf("%s <%s>", c.Name, e))
			} else {
				ret = append(ret, e)
			}
		}
	}
	return ret
}
