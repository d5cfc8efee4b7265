// Package config loads vtree.json, the runtime configuration shared by the
// vtree command and embedders.
//
// # Configuration File Structure
//
//	{
//	  "selector": { "cacheSize": 1000 },
//	  "render": { "frameInterval": "16ms", "mountDelay": "0s" },
//	  "log": { "level": "info", "format": "text" },
//	  "metrics": { "enabled": true, "namespace": "vtree" },
//	  "serve": { "address": ":8080", "path": "/ws" }
//	}
//
// Every field is optional; missing fields take the defaults shown above.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	rt := vdom.NewRuntime(vdom.WithCacheSize(cfg.Selector.CacheSize))
package config
