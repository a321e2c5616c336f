// contacts is a command-line client for the Google contacts feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rosita7/contacts/pkg/gcontacts"
)

const version = "0.1"

var (
	cfgFile      = flag.String("config", "", "Config file. Default is ~/"+path.Join(defaultConfigDir, configFileName))
	configure    = flag.Bool("configure", false, "Run interactive setup and store a session token.")
	logFile      = flag.String("log", "", "Log debug data to this file instead of stderr.")
	logJSON      = flag.Bool("log_json", false, "Log as JSON instead of text.")
	verbose      = flag.Bool("verbose", false, "Turn on verbose logging.")
	versionFlag  = flag.Bool("version", false, "Show version and exit.")
	insecureTLS  = flag.Bool("insecure_tls", false, "Skip TLS certificate verification on auth calls. For testing only.")
	user         = flag.String("user", gcontacts.DefaultUser, "Feed owner. Default is the authenticated user.")
	projection   = flag.String("projection", gcontacts.ProjectionThin, "Feed detail level, thin or full.")
	limit        = flag.Int("limit", 0, "Max entries to fetch. 0 means the server default page.")
	offset       = flag.Int("offset", 0, "Entries to skip.")
	order        = flag.String("order", "", "Sort key, e.g. lastmodified.")
	ascending    = flag.Bool("ascending", false, "Sort ascending instead of descending.")
	updatedAfter = flag.String("updated_after", "", "Only entries updated after this RFC3339 time.")

	// Relative to configDir.
	configFileName = "contacts.conf"

	// Relative to $HOME.
	defaultConfigDir = ".contacts"
)

func configFilePath() string {
	if *cfgFile != "" {
		return *cfgFile
	}
	return path.Join(os.Getenv("HOME"), defaultConfigDir, configFileName)
}

// fetchOptions builds the option set from the flags the user actually
// passed, so that e.g. -offset=0 still turns into start-index=1.
func fetchOptions() gcontacts.Params {
	var opts gcontacts.Params
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "limit":
			opts = append(opts, gcontacts.Param{Key: "limit", Value: gcontacts.Int(*limit)})
		case "offset":
			opts = append(opts, gcontacts.Param{Key: "offset", Value: gcontacts.Int(*offset)})
		case "order":
			opts = append(opts, gcontacts.Param{Key: "order", Value: gcontacts.String(*order)})
		case "ascending":
			opts = append(opts, gcontacts.Param{Key: "descending", Value: gcontacts.Bool(!*ascending)})
		case "updated_after":
			t, err := time.Parse(time.RFC3339, *updatedAfter)
			if err != nil {
				log.Fatalf("Bad -updated_after %q: %v", *updatedAfter, err)
			}
			opts = append(opts, gcontacts.Param{Key: "updated_after", Value: gcontacts.Time(t)})
		}
	})
	return opts
}

func main() {
	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("Trailing args on cmdline: %q", flag.Args())
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *logJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			DisableColors: true,
		})
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			log.Fatalf("Can't create logfile %q: %v", *logFile, err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	if *versionFlag {
		fmt.Printf("contacts %s\n", version)
		return
	}

	ctx := context.Background()
	auth := &gcontacts.Auth{InsecureSkipVerify: *insecureTLS}

	if *configure {
		if err := gcontacts.Configure(ctx, auth, configFilePath()); err != nil {
			log.Fatalf("Configuring: %v", err)
		}
		return
	}

	conf, err := gcontacts.ReadConfig(configFilePath())
	if err != nil {
		log.Fatalf("Reading config (run with -configure first?): %v", err)
	}
	if conf.Auth.Token == "" {
		log.Fatalf("No token in config; re-run with -configure")
	}

	client := gcontacts.New(conf.Auth.Token,
		gcontacts.WithUser(*user),
		gcontacts.WithProjection(*projection),
	)
	feed, err := client.Fetch(ctx, fetchOptions())
	if err != nil {
		log.Fatalf("Fetching contacts: %v", err)
	}
	if feed.UpdatedRaw() != "" {
		log.Debugf("Feed updated %s", feed.UpdatedRaw())
	}
	for _, a := range feed.Addresses() {
		fmt.Println(a)
	}
}
