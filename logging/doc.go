// Package logging holds the process-wide structured logger used by MemDB.
//
// Embedded engines stay quiet: until Init is called the logger writes
// WARN and above to stderr. Command line front-ends call Init once at
// startup:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// Child loggers carry common fields:
//
//	logging.WithTable("person").Info("table created")
//	logging.WithSession(id).Debug("query", "sql", q)
package logging
