// Package config provides the configuration of crawlgraph: crawler
// settings, report preferences, the live viewer address and the force
// layout constants.
//
// Values come from three places, later ones winning: the defaults of
// NewConfig, the optional YAML file (.crawlgraph in the working directory
// or the home directory) and the command line flags.
//
// A config file looks like this:
//
//	defaults:
//	  depth: 2
//	  ignorePatterns: ["/logout*", "*.pdf"]
//	sites:
//	  example.com:
//	    cookie: "session=abc"
//	layout:
//	  width: 800
//	  height: 600
//	  alphaDecay: 0.01
package config
