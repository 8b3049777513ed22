// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package braidnodecfg defines the command-line and config-file options for
// the braidpool node daemon.
package braidnodecfg

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/braidpool/node/chaincfg"
)

const (
	defaultConfigFilename = "braidnoded.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogFilename    = "braidnoded.log"

	defaultPeerListen    = ":987"
	defaultMiningListen  = ":3388"
	defaultMaxPeers      = 125
	defaultMinPeerScore  = 20.0
	defaultIdlePenalty   = 0.01 // score lost per second a peer sends nothing
	defaultLatencyBonus  = 1.0
	defaultConnectTimeout = 30 * time.Second
)

var (
	defaultHomeDir    = btcutilAppDataDir("braidnoded", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, "logs")
)

// Config defines the configuration options for braidnoded.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store the bead store"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	TestNet bool `long:"testnet" description:"Use the test network"`
	RegTest bool `long:"regtest" description:"Use the regression test network"`

	PeerListen   string   `long:"peerlisten" description:"Address to listen on for overlay peer connections (parsed but not used by braidnoded)"`
	ConnectPeers []string `long:"connect" description:"Connect only to the specified peers at startup (parsed but not used by braidnoded)"`
	MaxPeers     int      `long:"maxpeers" description:"Max number of overlay peers to hold open"`
	MinPeerScore float64  `long:"minpeerscore" description:"Score floor: penalties and idle decay never take a peer below it, and peers scoring below it are eviction candidates"`
	IdlePenalty  float64  `long:"idlepenalty" description:"Score penalty per second of peer silence"`
	LatencyBonus float64  `long:"latencybonus" description:"Score bonus factor applied to low-latency peers (parsed but not used by braidnoded)"`

	MiningListen string `long:"mininglisten" description:"Address for local mining front-ends to submit shares on (parsed but not used by braidnoded)"`

	BitcoinRPCHost string `long:"rpchost" description:"Host:port of the backing Bitcoin node's RPC/ZMQ interface (parsed but not used by braidnoded)"`
	BitcoinRPCUser string `long:"rpcuser" description:"Username for Bitcoin node RPC (parsed but not used by braidnoded)"`
	BitcoinRPCPass string `long:"rpcpass" description:"Password for Bitcoin node RPC (parsed but not used by braidnoded)"`

	ConnectTimeout time.Duration `long:"connecttimeout" description:"Timeout for outbound peer dials (parsed but not used by braidnoded)"`
}

// netParams resolves the chaincfg.Params implied by the network selection
// flags. TestNet and RegTest are mutually exclusive; neither set means
// mainnet.
func (cfg *Config) netParams() (*chaincfg.Params, error) {
	switch {
	case cfg.TestNet && cfg.RegTest:
		return nil, fmt.Errorf("testnet and regtest cannot both be specified")
	case cfg.TestNet:
		return &chaincfg.TestNetParams, nil
	case cfg.RegTest:
		return &chaincfg.RegTestParams, nil
	default:
		return &chaincfg.MainNetParams, nil
	}
}

// defaultConfig returns a Config pre-populated with the daemon's defaults,
// before flag or config-file parsing is applied on top of it.
func defaultConfig() Config {
	return Config{
		ConfigFile:     defaultConfigFile,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		PeerListen:     defaultPeerListen,
		MaxPeers:       defaultMaxPeers,
		MinPeerScore:   defaultMinPeerScore,
		IdlePenalty:    defaultIdlePenalty,
		LatencyBonus:   defaultLatencyBonus,
		MiningListen:   defaultMiningListen,
		ConnectTimeout: defaultConnectTimeout,
	}
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with the compiled-in defaults
//  2. Pre-parse the command line to see if a config file was specified
//  3. Load the config file, overriding defaults it sets
//  4. Parse the command line again, overriding anything set by the file
//
// This mirrors the layered precedence used throughout the btcsuite tooling
// this daemon is descended from.
func LoadConfig() (*Config, *chaincfg.Params, []string, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default|flags.IgnoreUnknown)
	if _, err := preParser.Parse(); err != nil {
		return nil, nil, nil, err
	}

	if preCfg.ShowVersion {
		return &preCfg, nil, nil, nil
	}

	if preCfg.ConfigFile != defaultConfigFile {
		cfg.ConfigFile = preCfg.ConfigFile
	}

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		if err := flags.NewIniParser(flags.NewParser(&cfg, flags.Default)).ParseFile(cfg.ConfigFile); err != nil {
			if _, ok := err.(*os.PathError); !ok {
				return nil, nil, nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, nil, err
	}

	params, err := cfg.netParams()
	if err != nil {
		return nil, nil, nil, err
	}

	cleanAndExpandPath(&cfg.DataDir)
	cleanAndExpandPath(&cfg.LogDir)

	return &cfg, params, remainingArgs, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in path,
// cleans the result, and overwrites path in place.
func cleanAndExpandPath(path *string) {
	if *path == "" {
		return
	}
	if len(*path) > 0 && (*path)[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			*path = filepath.Join(home, (*path)[1:])
		}
	}
	*path = filepath.Clean(os.ExpandEnv(*path))
}

// btcutilAppDataDir returns the directory used for storing application data:
// a dotted directory under the user's home, on every operating system.
// Unlike btcutil.AppDataDir it has no Windows- or macOS-specific location;
// roaming is accepted for parity with that signature but unused.
func btcutilAppDataDir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}
	_ = roaming

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "."+appName)
}
