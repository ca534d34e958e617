package cmd

import (
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lequal/sonarqube-verify/internal/config"
)

func setupLogging(cfg *config.Configuration) cobrautil.CobraRunFunc {
	return func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		zap.S().Named("cmd").Debugw("configuration", "command", cmd.Name(), "config", cfg.Redacted().DebugMap())
		return nil
	}
}

func newLogger(l config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if l.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = level
	return zc.Build()
}
