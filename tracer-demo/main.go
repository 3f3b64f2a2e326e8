package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	tracer "github.com/ottago/tracer"
)

type config struct {
	Device     string `yaml:"device"`
	SlaveID    byte   `yaml:"slave_id"`
	Baudrate   int    `yaml:"baudrate"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	IntervalMs int    `yaml:"interval_ms"`
}

func usage() {
	fmt.Printf("Usage: %s [flags] COMMAND ...\n"+
		"Commands:\n"+
		"  list [CATEGORY]        show known parameters\n"+
		"  read NAME...           read named parameters\n"+
		"  read-all [CATEGORY]    read a whole category (or everything)\n"+
		"  write NAME VALUE       write one configuration parameter\n"+
		"  monitor [CATEGORY]     poll and print until interrupted\n"+
		"Flags:\n", os.Args[0])
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	cfg := config{
		Device:     "/dev/ttyXRUSB0",
		SlaveID:    1,
		IntervalMs: 10000,
	}

	cfgFile := flag.String("config", "", "YAML config file")
	dev := flag.String("dev", "", "serial device (overrides config)")
	slave := flag.Int("slave", 0, "slave address (overrides config)")
	confirm := flag.Bool("confirm", false, "allow writes to protection thresholds")
	dryRun := flag.Bool("dry-run", false, "validate a write without sending it")
	count := flag.Int("count", 0, "monitor sweeps to run, 0 = forever")
	debug := flag.Bool("debug", false, "log bus traffic")
	flag.Usage = usage
	flag.Parse()

	if *cfgFile != "" {
		b, err := os.ReadFile(*cfgFile)
		if err != nil {
			log.Fatalf("ERR: %s\n", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			log.Fatalf("ERR: %s: %s\n", *cfgFile, err)
		}
	}
	if *dev != "" {
		cfg.Device = *dev
	}
	if *slave != 0 {
		cfg.SlaveID = byte(*slave)
	}

	if *debug {
		tracer.InfoLogFunc = log.Printf
		tracer.DebugLogFunc = log.Printf
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	if args[0] == "list" {
		list(args[1:])
		return
	}

	d := &tracer.Device{
		Con: &tracer.Controller{
			Port: &tracer.SerialPort{
				Dev:      cfg.Device,
				Baudrate: cfg.Baudrate,
			},
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
		DevAddr: cfg.SlaveID,
	}
	defer d.Con.Close()

	switch args[0] {
	case "read":
		if len(args) < 2 {
			usage()
		}
		rs := d.Read(args[1:]...)
		for _, name := range args[1:] {
			if r := rs[name]; r.Err != nil {
				fmt.Printf("%-28s ERR %s\n", name, r.Err)
			} else {
				fmt.Printf("%-28s %s\n", name, r.Value)
			}
		}
	case "read-all":
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		printSnapshot(d.ReadAll(category))
	case "write":
		if len(args) != 3 {
			usage()
		}
		write(d, args[1], args[2], *confirm, *dryRun)
	case "monitor":
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		monitor(d, category, cfg, *count)
	default:
		usage()
	}
}

func list(args []string) {
	category := ""
	if len(args) > 0 {
		category = args[0]
	}
	for _, p := range tracer.Params(category) {
		rw := "r"
		if p.Writable {
			rw = "rw"
			if p.Critical {
				rw = "rw!"
			}
		}
		fmt.Printf("0x%04X %-3s %-28s %-10s %s\n",
			p.Addr, rw, p.Name, p.Category, p.Unit)
	}
}

func write(d *tracer.Device, name, value string, confirm, dryRun bool) {
	if dryRun {
		words, err := d.CheckWrite(name, value, confirm)
		if err != nil {
			log.Fatalf("ERR: %s\n", err)
		}
		fmt.Printf("would write %v to %s\n", words, name)
		return
	}
	if err := d.Write(name, value, confirm); err != nil {
		log.Fatalf("ERR: %s\n", err)
	}
	fmt.Printf("%s written\n", name)
}

func monitor(d *tracer.Device, category string, cfg config, count int) {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := &tracer.Monitor{
		Dev:      d,
		Category: category,
		Interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		Count:    count,
	}
	out := make(chan tracer.Snapshot)
	go func() {
		for s := range out {
			printSnapshot(s)
			fmt.Println()
		}
	}()
	if err := m.Run(ctx, out); err != nil && ctx.Err() == nil {
		log.Fatalf("ERR: %s\n", err)
	}
}

func printSnapshot(s tracer.Snapshot) {
	fmt.Println(s.At.Format(time.RFC3339))
	for _, v := range s.Values {
		fmt.Printf("%-28s %s\n", v.Param.Name, v)
	}
	for name, err := range s.Errs {
		fmt.Printf("%-28s ERR %s\n", name, err)
	}
}
