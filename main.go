// Copyright 2023 The hoxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/cmd"
	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/core"
	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const serviceVersion = "v0.1.0"

// configEnvPrefix prefix of environment variables overriding config file entries
//
// Nested keys join with "_", e.g. HOXY_MEMBER_STORE_DSN sets member_store.dsn.
const configEnvPrefix = "HOXY"

type cliArgs struct {
	JSONLog    bool
	LogLevel   string `validate:"required,oneof=debug info warn error"`
	ConfigFile string `validate:"omitempty,file"`
	Hostname   string
}

var cmdArgs cliArgs

var logTags log.Fields

// @title hoxy
// @version v0.1.0
// @description Fan-club proximity notification service

// @host localhost:8080
// @BasePath /
func main() {
	hostname, err := os.Hostname()
	if err != nil {
		log.WithError(err).Fatal("Unable to read hostname")
	}
	cmdArgs.Hostname = hostname
	logTags = log.Fields{
		"module":    "main",
		"component": "main",
		"instance":  hostname,
	}

	common.InstallDefaultConfigValues()

	app := &cli.App{
		Name:        "hoxy",
		Version:     serviceVersion,
		Usage:       "fan-club proximity notifications",
		Description: "Tracks where fan-club members are and tells them when one of their own is close by",
		Flags:       globalFlags(),
		Commands: []*cli.Command{
			{
				Name:        "server",
				Usage:       "Run the hoxy API server",
				Description: "Serves the member REST API and live event streams, and runs the proximity pipeline",
				Action:      startServer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Program shutdown")
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "json-log",
			Usage:       "Whether to log in JSON format",
			Aliases:     []string{"j"},
			EnvVars:     []string{"LOG_AS_JSON"},
			Value:       false,
			DefaultText: "false",
			Destination: &cmdArgs.JSONLog,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Logging level: [debug info warn error]",
			Aliases:     []string{"l"},
			EnvVars:     []string{"LOG_LEVEL"},
			Value:       "info",
			DefaultText: "info",
			Destination: &cmdArgs.LogLevel,
		},
		&cli.StringFlag{
			Name:        "config-file",
			Usage:       "Application config file. Defaults and HOXY_* env vars apply if not specified.",
			Aliases:     []string{"c"},
			EnvVars:     []string{"CONFIG_FILE"},
			Destination: &cmdArgs.ConfigFile,
		},
	}
}

// setupLogging helper function to prepare the app logging
func setupLogging() {
	if cmdArgs.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	level, err := log.ParseLevel(cmdArgs.LogLevel)
	if err != nil {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

// loadSystemConfig read the config file, apply env overrides, and validate the result
func loadSystemConfig(validate *validator.Validate) (*common.SystemConfig, error) {
	viper.SetEnvPrefix(configEnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if len(cmdArgs.ConfigFile) > 0 {
		viper.SetConfigFile(cmdArgs.ConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			log.WithError(err).WithFields(logTags).Errorf(
				"Failed to read config file %s", cmdArgs.ConfigFile,
			)
			return nil, err
		}
	}

	var config common.SystemConfig
	if err := viper.Unmarshal(&config); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to parse config")
		return nil, err
	}
	if tmp, err := json.MarshalIndent(&config, "", "  "); err == nil {
		log.Debugf("Config\n%s", tmp)
	}
	if err := validate.Struct(&config); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid config content")
		return nil, err
	}
	return &config, nil
}

// initialCmdArgsProcessing perform initial CMD arg processing
func initialCmdArgsProcessing() (*common.SystemConfig, error) {
	validate := validator.New()
	if err := validate.Struct(&cmdArgs); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid CMD args")
		return nil, err
	}
	setupLogging()
	log.WithFields(logTags).Debugf(
		"Starting with log-level=%s json-log=%v config-file='%s'",
		cmdArgs.LogLevel, cmdArgs.JSONLog, cmdArgs.ConfigFile,
	)
	return loadSystemConfig(validate)
}

// connectNATS define the NATS client backing the key-value buckets
//
// Losing the connection for good cancels ctxtCancel, which shuts the server down.
func connectNATS(config common.NATSConfig, ctxtCancel context.CancelFunc) (*core.NatsClient, error) {
	return core.GetNatsClient(core.NATSConnectParams{
		ServerURI:           config.ServerURI,
		ConnectTimeout:      time.Second * time.Duration(config.ConnectTimeout),
		MaxReconnectAttempt: config.Reconnect.MaxAttempts,
		ReconnectWait:       time.Second * time.Duration(config.Reconnect.WaitInterval),
		OnDisconnectCallback: func(_ *nats.Conn, e error) {
			log.WithError(e).WithFields(logTags).Errorf(
				"NATS client disconnected from server %s", config.ServerURI,
			)
		},
		OnReconnectCallback: func(_ *nats.Conn) {
			log.WithFields(logTags).Warnf(
				"NATS client reconnected with server %s", config.ServerURI,
			)
		},
		OnCloseCallback: func(_ *nats.Conn) {
			log.WithFields(logTags).Error("NATS client closed connection")
			ctxtCancel()
		},
	})
}

// signalRecvSetup cancel the runtime context on SIGINT or SIGTERM
func signalRecvSetup(wg *sync.WaitGroup, runTimeContext context.Context, ctxtCancel context.CancelFunc) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		cc := make(chan os.Signal, 1)
		signal.Notify(cc, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(cc)
		select {
		case sig := <-cc:
			log.WithFields(logTags).Infof("Received %s, shutting down", sig)
			ctxtCancel()
		case <-runTimeContext.Done():
		}
	}()
}

// ============================================================================
// Server subcommand

// startServer run the API server
func startServer(c *cli.Context) error {
	config, err := initialCmdArgsProcessing()
	if err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	runTimeContext, rtCancel := context.WithCancel(c.Context)
	defer wg.Wait()
	defer rtCancel()

	natsClient, err := connectNATS(config.NATS, rtCancel)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Failed to define NATS client with %s", config.NATS.ServerURI,
		)
		return err
	}
	defer func() {
		ctxt, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		natsClient.Close(ctxt)
	}()

	signalRecvSetup(wg, runTimeContext, rtCancel)

	return cmd.RunServer(
		runTimeContext, config, cmdArgs.Hostname, serviceVersion, natsClient, wg,
	)
}
