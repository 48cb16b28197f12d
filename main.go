package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"txoflow/analytics"
	"txoflow/calendar"
	"txoflow/config"
	"txoflow/logger"
	"txoflow/models"
	"txoflow/reader/taifex"
	"txoflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	contract := flag.String("contract", "", "Contract code to analyze, defaults to the nearest alive contract")
	spot := flag.Float64("spot", 0, "Spot index level")
	futures := flag.Float64("futures", 0, "Front-month futures price, enables the basis readout")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if *spot <= 0 {
		log.WithComponent("main").Error("a positive -spot index level is required")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Txoflow.Name,
		"version":     cfg.Txoflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting txoflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "TxoFlow")
	}

	if err := run(ctx, cfg, log, strings.ToUpper(strings.TrimSpace(*contract)), *spot, *futures); err != nil {
		log.WithError(err).Error("analysis failed")
		os.Exit(1)
	}

	log.Info("txoflow finished")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Log, contract string, spot, futures float64) error {
	snapshots, err := taifex.NewSnapshotReader(cfg).LoadLatest(cfg.Reader.Days)
	if err != nil {
		return err
	}

	overrides, err := cfg.Calendar.ParsedSettlementOverrides()
	if err != nil {
		return err
	}
	resolver := calendar.NewResolver(overrides)

	table, err := analytics.AlignSnapshots(snapshots, cfg.Analytics.ContractMultiplier)
	if err != nil {
		return err
	}

	alive := resolver.AliveContracts(snapshots[0], table.AsOfDate)
	if len(alive) == 0 {
		return fmt.Errorf("no alive contracts in the latest snapshot")
	}

	target := alive[0]
	if contract != "" {
		found := false
		for _, c := range alive {
			if c.Code == contract {
				target = c
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("contract %s is not alive in the latest snapshot", contract)
		}
	}

	contractTable := table.FilterContract(target.Code)
	rows := make([]models.OptionQuoteRow, len(contractTable.Rows))
	for i, r := range contractTable.Rows {
		rows[i] = r.OptionQuoteRow
	}

	mainLog := log.WithComponent("main").WithFields(logger.Fields{
		"contract":   target.Code,
		"settlement": target.Settlement.Format("2006-01-02"),
		"as_of":      table.AsOfDate.Format("2006-01-02"),
		"rows":       len(rows),
		"days":       len(snapshots),
	})
	mainLog.Info("analyzing contract")

	engine := analytics.NewEngine(cfg.Analytics)

	summary := logger.Fields{"spot": spot}

	if ratio, ok := analytics.PutCallNotionalRatio(contractTable.Rows); ok {
		summary["put_call_ratio_pct"] = ratio
	}
	if basis, ok := analytics.Basis(futures, spot); ok {
		summary["basis"] = basis
	}

	gex, err := engine.DealerGex(rows, spot, target.Settlement, table.AsOfDate)
	switch {
	case errors.Is(err, analytics.ErrNoConvergingRows):
		mainLog.Warn("no rows converged, skipping gamma exposure")
	case err != nil:
		return err
	default:
		if max, ok := analytics.MaxGex(gex); ok {
			summary["max_gex_strike"] = max.Strike
			summary["max_gex"] = max.Gex
		}
	}

	skew, err := engine.RiskReversal(rows, spot, target.Settlement, table.AsOfDate)
	if err != nil {
		return err
	}
	summary["atm_strike"] = skew.ATMStrike
	if skew.ATMImpliedVol != nil {
		summary["atm_iv"] = *skew.ATMImpliedVol
	}
	if skew.RiskReversal != nil {
		summary["risk_reversal_25d"] = *skew.RiskReversal
	}

	levels := analytics.StrikeDistribution(contractTable.Rows, spot, cfg.Analytics.FocusRange)
	summary["focus_strikes"] = len(levels)

	mainLog.WithFields(summary).Info("analysis summary")

	if !cfg.Writer.Enabled {
		return nil
	}

	exporter, err := writer.NewExporter(cfg)
	if err != nil {
		return err
	}
	if err := exporter.ExportAligned(ctx, contractTable, target.Code); err != nil {
		return err
	}
	if len(gex) > 0 {
		if err := exporter.ExportGex(ctx, gex, table.AsOfDate, target.Code); err != nil {
			return err
		}
	}
	return nil
}
