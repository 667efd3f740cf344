// Package log provides the leveled, printf-style logger used across stategraph.
//
// Loggers are backed by github.com/kataras/golog. The package keeps a
// process-wide default logger that the graph engine falls back to when no
// logger is passed with graph.WithLogger:
//
//	logger := log.NewDefaultLogger(log.LogLevelDebug)
//	log.SetDefaultLogger(logger)
//
// An existing golog.Logger can be wrapped directly:
//
//	g := golog.New()
//	g.SetPrefix("[app] ")
//	logger := log.NewGologLogger(g)
//	logger.SetLevel(log.LogLevelWarn)
//
// Level names are parsed with ParseLevel, which is how the CLI applies the
// log.level configuration key.
package log
