// Copyright (C) 2008-2019 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/svta/intersection-sim-server/scheduler"
	"github.com/svta/intersection-sim-server/server"
	log "gopkg.in/inconshreveable/log15.v2"
)

func main() {
	addr := flag.String("addr", server.DefaultAddr, "address on which to listen")
	port := flag.String("port", server.DefaultPort, "port on which to listen")
	configFile := flag.String("config", "", "YAML file with scheduling parameters")
	logLevel := flag.String("loglevel", "info", "minimum level of logging (crit, error, warn, info, debug)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: intersection-sim-server [options]\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New()
	lvl, err := log.LvlFromString(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown log level: %s\n", *logLevel)
		os.Exit(1)
	}
	logger.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	params := scheduler.DefaultParams()
	if *configFile != "" {
		v := viper.New()
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Crit("Unable to read config file", "file", *configFile, "error", err)
			os.Exit(1)
		}
		params = scheduler.LoadParams(v)
		logger.Info("Loaded scheduling parameters", "file", *configFile)
	}

	sched := scheduler.New(params)
	sched.SetLogger(logger)
	server.InitializeLogger(logger)
	if err := server.Run(sched, *addr, *port); err != nil {
		logger.Crit("Server crashed", "error", err)
		os.Exit(1)
	}
}
