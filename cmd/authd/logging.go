package main

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sandpiper-dns/adns/config"
)

// setupLogging rotates the process log via lumberjack, the teacher's
// tdns/logging.go SetupLogging shape: short-file/time flags, output
// redirected to a size/age-bounded rotating file when one is configured.
func setupLogging(cfg config.LogConf) {
	log.SetFlags(log.Lshortfile | log.Ltime)
	if cfg.File == "" {
		return
	}
	maxSize := cfg.MaxSizeMB
	if maxSize == 0 {
		maxSize = 20
	}
	maxBackups := cfg.MaxBackups
	if maxBackups == 0 {
		maxBackups = 3
	}
	maxAge := cfg.MaxAgeDays
	if maxAge == 0 {
		maxAge = 14
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	})
}
