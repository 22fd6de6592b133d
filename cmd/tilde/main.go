package main

import (
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/tilde-wm/tilde/internal/config"
	"github.com/tilde-wm/tilde/internal/wm"
	"github.com/tilde-wm/tilde/internal/x11"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tilde", version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("could not parse log level")
	}
	log.SetLevel(level)

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(cfg *config.Config) error {
	conn, err := x11.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	keys := make(map[string]wm.Command, len(cfg.Keybindings))
	combos := make([]string, 0, len(cfg.Keybindings))
	for _, kb := range cfg.Keybindings {
		cmd, err := wm.NewCommand(kb.Command, kb.Args)
		if err != nil {
			return err
		}
		combo := cfg.ExpandKey(kb.Key)
		keys[combo] = cmd
		combos = append(combos, combo)
	}

	if err := conn.InstallAsWM(combos); err != nil {
		return err
	}

	groups := make([]wm.GroupConfig, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		groups = append(groups, wm.GroupConfig{Name: g.Name, Layout: g.Layout})
	}

	manager, err := wm.New(conn, cfg.BuildLayouts(), groups, keys)
	if err != nil {
		return err
	}
	log.WithField("version", version).Info("tilde started")
	return manager.Run()
}
