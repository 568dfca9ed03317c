// Package config loads project configuration for the way CLI.
//
// The configuration is stored in way.json (or way.yaml) next to the page.
// Settings from the file can be overridden with WAY_HOST, WAY_PORT,
// WAY_LOG_LEVEL and WAY_METRICS.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "page": "index.html",
//	    "watch": true
//	  },
//	  "log": {"level": "info", "format": "text"},
//	  "metrics": {"enabled": true},
//	  "runtime": {"exprCacheSize": 512, "maxFlushRounds": 100},
//	  "props": {"title": "Demo"},
//	  "forms": {
//	    "signup": {"username": "required,minlength=4"}
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
