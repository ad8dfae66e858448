// Package config provides configuration parsing for the kiai client.
//
// The configuration is stored in kiai.json, looked up from the working
// directory upwards. Every field can be overridden by a KIAI_* environment
// variable; the password is only ever read from KIAI_PASSWORD.
//
// # Configuration File Structure
//
//	{
//	  "server_url": "wss://play.kiai.gg/ws",
//	  "keep_alive": "1s",
//	  "login_timeout": "10s",
//	  "account": {
//	    "username": "rin"
//	  },
//	  "maps": {
//	    "index": "maps.db",
//	    "dir": "maps",
//	    "mirror": {
//	      "bucket": "kiai-maps",
//	      "region": "us-east-1",
//	      "endpoint": "https://s3.kiai.gg",
//	      "prefix": "maps/"
//	    }
//	  },
//	  "debug": {
//	    "listen": "127.0.0.1:7271"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Server:", cfg.ServerURL)
package config
