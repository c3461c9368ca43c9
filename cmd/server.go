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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/apis"
	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/core"
	"github.com/Unithon10th-Team4/Hoxy-BE/index"
	"github.com/Unithon10th-Team4/Hoxy-BE/member"
	"github.com/Unithon10th-Team4/Hoxy-BE/observability"
	"github.com/Unithon10th-Team4/Hoxy-BE/proximity"
	"github.com/Unithon10th-Team4/Hoxy-BE/push"
	"github.com/Unithon10th-Team4/Hoxy-BE/registry"
	"github.com/Unithon10th-Team4/Hoxy-BE/storage"
	"github.com/Unithon10th-Team4/Hoxy-BE/throttle"
	"github.com/apex/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// OpenMemberStore connect to the member store named by the config
func OpenMemberStore(
	ctxt context.Context, config common.MemberStoreConfig,
) (storage.MemberStore, error) {
	connCtxt, cancel := context.WithTimeout(ctxt, time.Second*time.Duration(config.CallTimeout))
	defer cancel()
	switch config.Driver {
	case "postgres":
		return storage.ConnectPostgresMemberStore(connCtxt, config.DSN)
	case "sqlite":
		return storage.OpenSQLiteMemberStore(connCtxt, config.DSN)
	default:
		return nil, fmt.Errorf("unsupported member store driver '%s'", config.Driver)
	}
}

// DefineNotifier define the push notifier named by the config
func DefineNotifier(ctxt context.Context, config common.PushConfig) (push.Notifier, error) {
	if !config.Enabled {
		return push.NewLogNotifier(), nil
	}
	return push.NewFCMNotifier(ctxt, config)
}

// RunServer run the proximity notification server until runTimeContext is done
func RunServer(
	runTimeContext context.Context,
	config *common.SystemConfig,
	instance string,
	version string,
	natsClient *core.NatsClient,
	wg *sync.WaitGroup,
) error {
	logTags := log.Fields{
		"module":    "cmd",
		"component": "server",
		"instance":  instance,
	}

	// -------------------------------------------------------------------
	// Observability

	var metrics *observability.Metrics
	metricsRegistry := prometheus.NewRegistry()
	if config.Metrics.Enabled {
		metricsRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(metricsRegistry)
	}

	tracer, tracerShutdown := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "hoxy",
		ServiceVersion: version,
		Endpoint:       config.Tracing.Endpoint,
		Insecure:       config.Tracing.Insecure,
		SamplingRate:   config.Tracing.SamplingRate,
	})
	defer func() {
		ctxt, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := tracerShutdown(ctxt); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to flush traces")
		}
	}()

	// -------------------------------------------------------------------
	// Storage

	memberStore, err := OpenMemberStore(runTimeContext, config.MemberStore)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Unable to open %s member store", config.MemberStore.Driver,
		)
		return err
	}
	defer func() {
		if err := memberStore.Close(); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to close member store")
		}
	}()

	pushCooldown := time.Second * time.Duration(config.Proximity.PushCooldown)
	kvCallTimeout := time.Second * time.Duration(config.NATS.KeyValue.CallTimeout)
	throttleKV, err := storage.GetNATSKeyValueStore(
		natsClient, config.NATS.KeyValue.ThrottleBucket, pushCooldown, kvCallTimeout,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define throttle bucket")
		return err
	}
	sessionKV, err := storage.GetNATSKeyValueStore(
		natsClient,
		config.NATS.KeyValue.SessionBucket,
		time.Second*time.Duration(config.NATS.KeyValue.SessionTTL),
		kvCallTimeout,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define session bucket")
		return err
	}

	notifier, err := DefineNotifier(runTimeContext, config.Push)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define push notifier")
		return err
	}

	// -------------------------------------------------------------------
	// Core components

	connections := registry.NewRegistry(metrics)
	defer connections.Close()

	nearby := index.NewIndex(memberStore)

	pipeline, err := proximity.NewPipeline(
		runTimeContext,
		proximity.Config{
			RadiusMeters: config.Proximity.RadiusMeters,
			PushCooldown: pushCooldown,
			Workers:      config.Proximity.Workers,
			QueueSize:    config.Proximity.QueueSize,
		},
		proximity.Dependencies{
			Members:     memberStore,
			Index:       nearby,
			Connections: connections,
			Throttle:    throttle.NewStore(throttleKV),
			Notifier:    notifier,
			Metrics:     metrics,
			Tracer:      tracer,
		},
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define proximity pipeline")
		return err
	}
	if err := pipeline.Start(wg); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start proximity pipeline")
		return err
	}
	defer func() {
		_ = pipeline.Stop()
	}()

	members := member.NewService(
		memberStore,
		nearby,
		sessionKV,
		pipeline,
		time.Millisecond*time.Duration(config.Proximity.SubmitTimeout),
	)

	// Close streams which have seen no traffic past the idle ceiling
	idleSweep, err := common.GetIntervalTimerInstance(runTimeContext, "idle-sweep", wg)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define idle sweep timer")
		return err
	}
	maxIdle := time.Second * time.Duration(config.Connection.MaxIdle)
	if err := idleSweep.Start(
		time.Second*time.Duration(config.Connection.IdleCheckInterval),
		func() error {
			connections.CloseIdle(maxIdle)
			return nil
		},
		false,
	); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start idle sweep timer")
		return err
	}
	defer func() {
		_ = idleSweep.Stop()
	}()

	// -------------------------------------------------------------------
	// HTTP handlers

	localCtxt, lclCancel := context.WithCancel(runTimeContext)
	defer lclCancel()

	httpConfig := &config.API.HTTPSetting
	memberHandler := apis.GetAPIRestMemberHandler(members, httpConfig)
	sseHandler := apis.GetAPIRestSSEHandler(
		localCtxt, connections, members, config.Connection, httpConfig,
	)
	healthHandler := apis.GetAPIRestHealthHandler(httpConfig, map[string]apis.ReadinessCheck{
		"member-store": memberStore.Ready,
		"nats":         natsClient.Ready,
	})

	router := mux.NewRouter()
	mainRouter := apis.RegisterPathPrefix(router, config.API.Endpoints.PathPrefix, nil)

	// Members
	memberRouter := apis.RegisterPathPrefix(
		mainRouter, "/v1/member", map[string]http.HandlerFunc{
			"get":  memberHandler.ListMembersHandler(),
			"post": memberHandler.AddMemberHandler(),
		},
	)
	oneMemberRouter := apis.RegisterPathPrefix(
		memberRouter, "/{memberName}", map[string]http.HandlerFunc{
			"get": memberHandler.GetMemberHandler(),
		},
	)
	_ = apis.RegisterPathPrefix(oneMemberRouter, "/near", map[string]http.HandlerFunc{
		"get": memberHandler.GetNearMembersHandler(),
	})
	_ = apis.RegisterPathPrefix(oneMemberRouter, "/location", map[string]http.HandlerFunc{
		"put": memberHandler.UpdateLocationHandler(),
	})
	_ = apis.RegisterPathPrefix(oneMemberRouter, "/status", map[string]http.HandlerFunc{
		"put": memberHandler.UpdateStatusHandler(),
	})
	_ = apis.RegisterPathPrefix(oneMemberRouter, "/point", map[string]http.HandlerFunc{
		"put": memberHandler.AddPointsHandler(),
	})
	_ = apis.RegisterPathPrefix(oneMemberRouter, "/fanclub", map[string]http.HandlerFunc{
		"get": memberHandler.GetFanclubIDHandler(),
	})

	// Live events
	_ = apis.RegisterPathPrefix(mainRouter, "/v1/sse/connect", map[string]http.HandlerFunc{
		"get": sseHandler.ConnectHandler(),
	})

	// Health check
	_ = apis.RegisterPathPrefix(mainRouter, "/v1/alive", map[string]http.HandlerFunc{
		"get": healthHandler.AliveHandler(),
	})
	_ = apis.RegisterPathPrefix(mainRouter, "/v1/ready", map[string]http.HandlerFunc{
		"get": healthHandler.ReadyHandler(),
	})

	// Metrics
	if config.Metrics.Enabled {
		router.Handle(
			config.Metrics.Path,
			promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{Registry: metricsRegistry}),
		)
	}

	// Add logging
	router.Use(func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(memberHandler, next)
	})

	// -------------------------------------------------------------------
	// Start the HTTP server

	serverCfg := config.API.HTTPSetting.Server
	serverListen := fmt.Sprintf("%s:%d", serverCfg.ListenOn, serverCfg.Port)
	httpSrv := &http.Server{
		Addr:         serverListen,
		ReadTimeout:  time.Second * time.Duration(serverCfg.ReadTimeout),
		WriteTimeout: time.Second * time.Duration(serverCfg.WriteTimeout),
		IdleTimeout:  time.Second * time.Duration(serverCfg.IdleTimeout),
		Handler:      h2c.NewHandler(router, &http2.Server{}),
	}

	// Cancel runtime context on shutdown
	httpSrv.RegisterOnShutdown(lclCancel)

	// Start the server
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP Server Failure")
		}
	}()

	log.WithFields(logTags).Infof("Started HTTP server on http://%s", serverListen)

	// ============================================================================

	<-runTimeContext.Done()

	// Stop the HTTP server
	{
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Failure during HTTP shutdown")
		}
	}

	return nil
}
