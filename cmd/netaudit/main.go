package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"netaudit/internal/config"
	"netaudit/internal/discovery"
	"netaudit/internal/domain"
	"netaudit/internal/engine"
	"netaudit/internal/logger"
	"netaudit/internal/prescan"
	"netaudit/internal/report"
	"netaudit/internal/repository/sqlite"
	"netaudit/internal/rule"
	"netaudit/internal/scheduler"
	"netaudit/internal/session"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	username := flag.String("username", "", "SSH username (overrides config)")
	password := flag.String("password", "", "SSH password (prefer "+config.EnvSSHPassword+")")
	deviceFile := flag.String("devices", "", "device inventory file (overrides config)")
	ruleList := flag.String("rules", "", "comma-separated rule names (default: all)")
	listRules := flag.Bool("list-rules", false, "print available rules and exit")
	outputDir := flag.String("output", "", "report output directory (overrides config)")
	workers := flag.Int("workers", 0, "concurrent device audits (overrides config)")
	snmpUser := flag.String("snmp-user", "", "SNMPv3 username (prefer "+config.EnvSNMPUser+")")
	snmpAuthKey := flag.String("snmp-auth-key", "", "SNMPv3 auth key (prefer "+config.EnvSNMPAuthKey+")")
	snmpPrivKey := flag.String("snmp-priv-key", "", "SNMPv3 priv key (prefer "+config.EnvSNMPPrivKey+")")
	noPrescan := flag.Bool("no-prescan", false, "skip the nmap reachability scan")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	registry := rule.DefaultRegistry()

	if *listRules {
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return
	}

	cfg, cfgPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netaudit: %v\n", err)
		os.Exit(1)
	}

	if *debug {
		cfg.Logging.Debug = true
	}
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "netaudit: init logging: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()

	if cfgPath != "" {
		log.Info().Str("path", cfgPath).Msg("config loaded")
	} else {
		log.Info().Msg("no config file found, using defaults")
	}

	applyFlags(cfg, *username, *password, *deviceFile, *outputDir, *workers, *noPrescan)
	applySNMPFlags(cfg, *snmpUser, *snmpAuthKey, *snmpPrivKey)

	if cfg.SSH.Username == "" {
		log.Fatal().Msg("no SSH username: set ssh.username or pass -username")
	}

	if cfg.Prescan.Enabled {
		if err := prescan.ValidatePorts(cfg.Prescan.Ports); err != nil {
			log.Fatal().Err(err).Msg("invalid prescan.ports")
		}
	}

	devices, err := cfg.LoadDevices()
	if err != nil {
		log.Fatal().Err(err).Msg("load device inventory")
	}
	if len(devices) == 0 {
		log.Fatal().Msg("no devices to audit: set audit.device_file, audit.devices or pass -devices")
	}

	rules, err := selectRules(registry, cfg, *ruleList)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve rule selection")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch := run(ctx, cfg, devices, rules, log)

	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name()
	}

	if err := writeReports(cfg, &batch, names, log); err != nil {
		log.Fatal().Err(err).Msg("write reports")
	}

	if cfg.History.Enabled {
		saveHistory(ctx, cfg.History.Path, &batch, log)
	}

	failed := batch.Failed()
	log.Info().
		Int("devices", len(batch.Records)).
		Int("failed", failed).
		Dur("duration", batch.Duration()).
		Msg("audit complete")

	if failed > 0 {
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// applyFlags overlays command line values onto the loaded configuration.
// Flags win over file and environment.
func applyFlags(cfg *config.Config, username, password, deviceFile, outputDir string, workers int, noPrescan bool) {
	if username != "" {
		cfg.SSH.Username = username
	}
	if password != "" {
		cfg.SSH.Password = password
	}
	if deviceFile != "" {
		cfg.Audit.DeviceFile = deviceFile
		cfg.Audit.Devices = nil
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if workers > 0 {
		cfg.Audit.Workers = workers
	}
	if noPrescan {
		cfg.Prescan.Enabled = false
	}
}

func applySNMPFlags(cfg *config.Config, user, authKey, privKey string) {
	if user != "" {
		cfg.SNMP.User = user
	}
	if authKey != "" {
		cfg.SNMP.AuthKey = authKey
	}
	if privKey != "" {
		cfg.SNMP.PrivKey = privKey
	}
}

func selectRules(registry *rule.Registry, cfg *config.Config, flagList string) ([]rule.Rule, error) {
	names := cfg.Rules.Active
	if flagList != "" {
		names = nil
		for _, name := range strings.Split(flagList, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return registry.Select(names)
}

// run executes the prescan and the audit proper, then merges the two result
// sets back into inventory order so the batch always carries one record per
// input device.
func run(ctx context.Context, cfg *config.Config, devices []domain.Device, rules []rule.Rule, log zerolog.Logger) domain.AuditBatch {
	start := time.Now()

	reachable := devices
	var unreachable []domain.Device

	if cfg.Prescan.Enabled {
		scanner := &prescan.Scanner{
			Ports: cfg.Prescan.Ports,
			Log:   logger.WithComponent("prescan"),
		}
		var err error
		reachable, unreachable, err = scanner.Filter(ctx, devices)
		if err != nil {
			log.Warn().Err(err).Msg("prescan failed, auditing full inventory")
			reachable, unreachable = devices, nil
		}
	}

	sched := &scheduler.Scheduler{
		Dialer: &session.SSHDialer{
			ConnectTimeout: cfg.SSH.ConnectTimeout.Duration(),
			CommandTimeout: cfg.SSH.CommandTimeout.Duration(),
			Port:           cfg.SSH.Port,
			Log:            logger.WithComponent("ssh"),
		},
		Discoverer:   &discovery.Discoverer{Log: logger.WithComponent("discovery")},
		Engine:       newEngine(cfg),
		Workers:      cfg.Audit.Workers,
		BatchTimeout: cfg.Audit.BatchTimeout.Duration(),
		Credentials: domain.Credentials{
			Username: cfg.SSH.Username,
			Password: cfg.SSH.Password,
		},
		SNMP: domain.SNMPCredentials{
			User:         cfg.SNMP.User,
			AuthKey:      cfg.SNMP.AuthKey,
			PrivKey:      cfg.SNMP.PrivKey,
			AuthProtocol: cfg.SNMP.AuthProtocol,
			PrivProtocol: cfg.SNMP.PrivProtocol,
		},
		Log: logger.WithComponent("scheduler"),
	}

	batch := sched.AuditAll(ctx, reachable, rules)
	if len(unreachable) == 0 {
		return batch
	}

	return mergeUnreachable(batch, devices, unreachable, rules, start)
}

func newEngine(cfg *config.Config) *engine.Engine {
	settings := make(map[string]rule.Config, len(cfg.Rules.Settings))
	for name, opts := range cfg.Rules.Settings {
		settings[name] = rule.Config(opts)
	}
	return &engine.Engine{
		RuleTimeout: cfg.Audit.RuleTimeout.Duration(),
		Settings:    settings,
		Log:         logger.WithComponent("engine"),
	}
}

// mergeUnreachable rebuilds the batch over the full inventory, interleaving
// audited records with failed records for devices the prescan rejected.
func mergeUnreachable(batch domain.AuditBatch, devices, unreachable []domain.Device, rules []rule.Rule, start time.Time) domain.AuditBatch {
	skipped := make(map[string]bool, len(unreachable))
	for _, d := range unreachable {
		skipped[d.Address] = true
	}

	merged := domain.AuditBatch{
		StartedAt:  start,
		FinishedAt: batch.FinishedAt,
		Records:    make([]domain.DeviceAuditRecord, 0, len(devices)),
	}

	next := 0
	for _, d := range devices {
		if skipped[d.Address] {
			merged.Records = append(merged.Records, unreachableRecord(d, rules))
			continue
		}
		merged.Records = append(merged.Records, batch.Records[next])
		next++
	}
	return merged
}

func unreachableRecord(device domain.Device, rules []rule.Rule) domain.DeviceAuditRecord {
	record := domain.DeviceAuditRecord{
		Device:  device,
		Status:  domain.StatusFailed,
		Failure: "unreachable: management port closed",
		Results: make([]domain.RuleResult, len(rules)),
	}
	for i, r := range rules {
		record.Results[i] = domain.RuleResult{
			Rule:    r.Name(),
			Verdict: domain.VerdictError,
			Detail:  "device unreachable",
		}
	}
	return record
}

func writeReports(cfg *config.Config, batch *domain.AuditBatch, rules []string, log zerolog.Logger) error {
	outputs := []struct {
		name     string
		file     string
		renderer report.Renderer
	}{
		{"csv", cfg.Output.CSV, report.CSV{}},
		{"html", cfg.Output.HTML, report.HTML{}},
		{"json", cfg.Output.JSON, report.JSON{}},
	}

	for _, out := range outputs {
		if out.file == "" {
			continue
		}
		path := out.file
		if cfg.Output.Dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Output.Dir, path)
		}
		if err := report.WriteFile(out.renderer, path, batch, rules); err != nil {
			return fmt.Errorf("%s report: %w", out.name, err)
		}
		log.Info().Str("format", out.name).Str("path", path).Msg("report written")
	}
	return nil
}

func saveHistory(ctx context.Context, path string, batch *domain.AuditBatch, log zerolog.Logger) {
	repo, err := sqlite.New(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("open history database")
		return
	}
	defer repo.Close()

	id, err := repo.SaveBatch(ctx, batch)
	if err != nil {
		log.Error().Err(err).Msg("save audit history")
		return
	}
	log.Info().Int64("batch_id", id).Str("path", path).Msg("audit history saved")
}
