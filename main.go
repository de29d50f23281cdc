/*
 * PCISIM - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	getopt "github.com/pborman/getopt/v2"

	command "github.com/rcornwell/pcisim/command/command"
	reader "github.com/rcornwell/pcisim/command/reader"
	config "github.com/rcornwell/pcisim/config/configparser"
	"github.com/rcornwell/pcisim/config/debugconfig"
	"github.com/rcornwell/pcisim/config/devconfig"
	"github.com/rcornwell/pcisim/driver"
	"github.com/rcornwell/pcisim/emu/controller"
	"github.com/rcornwell/pcisim/emu/memory"
	"github.com/rcornwell/pcisim/emu/timer"
	"github.com/rcornwell/pcisim/telnet"
	debug "github.com/rcornwell/pcisim/util/debug"
	logger "github.com/rcornwell/pcisim/util/logger"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optTick := getopt.IntLong("tick", 't', 1000, "Device clock tick in microseconds")
	optHistory := getopt.StringLong("history", 'H', "", "Console history file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("Unable to create log file", "error", err)
			os.Exit(1)
		}
		defer file.Close()
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, *optDebug))
	slog.SetDefault(Logger)

	Logger.Info("PCISIM Started")
	if *optConfig != "" {
		if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
			Logger.Error("Configuration file can't be found", "file", *optConfig)
			os.Exit(1)
		}
		if err := config.LoadConfigFile(*optConfig); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}
	defer debug.Close()

	settings := devconfig.Get()
	mem := memory.New(settings.MemorySize)

	cfg := settings.Controller()
	cfg.Memory = mem
	cfg.Logger = Logger
	ctrl, err := controller.New(cfg)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	opts := settings.Driver()
	opts.Logger = Logger
	drv, err := driver.Probe(ctrl, mem, opts)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	if err := debugconfig.Apply(ctrl, drv); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	// Device clock delivers delayed interrupts.
	clock := timer.NewTimer(time.Duration(*optTick)*time.Microsecond, func() { ctrl.Tick(1) })
	if settings.Latency > 0 {
		clock.Start()
	}

	sess, err := command.NewSession(ctrl, drv, mem, os.Stdout)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	// Remote console, each client gets its own stream.
	if port := telnet.Port(); port != "" {
		server, err := telnet.NewServer(":"+port, func(out io.Writer) (*command.Session, error) {
			return command.NewSession(ctrl, drv, mem, out)
		}, Logger)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		server.Start()
		defer server.Stop()
	}

	msg := make(chan string, 1)
	go func() {
		reader.New(sess, *optHistory, Logger).Run()
		msg <- ""
	}()

	// Wait on shutdown option
	<-msg

	clock.Shutdown()
	_ = sess.Close()
	Logger.Info("Device stopped.")
}
