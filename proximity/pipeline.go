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

// Package proximity reacts to member presence changes by notifying nearby fan-club members
package proximity

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/index"
	"github.com/Unithon10th-Team4/Hoxy-BE/observability"
	"github.com/Unithon10th-Team4/Hoxy-BE/push"
	"github.com/Unithon10th-Team4/Hoxy-BE/registry"
	"github.com/Unithon10th-Team4/Hoxy-BE/throttle"
	"github.com/apex/log"
	"go.opentelemetry.io/otel/attribute"
)

// PushTitleTemplate push title, formatted with the fan-club name
const PushTitleTemplate = "HOXY.. 내 옆에 %s가?"

// PushBodyTemplate push body, formatted with the moving member's name and the fan-club name
const PushBodyTemplate = "%s님 주변에 %s가 있어요❤️"

// MemberLookup fresh reads of the durable member store
type MemberLookup interface {
	// FindByName fetch one member. Returns common.NotFoundError if absent.
	FindByName(ctxt context.Context, name string) (common.Member, error)
	// FindFanclub fetch one fan-club. Returns common.NotFoundError if absent.
	FindFanclub(ctxt context.Context, id string) (common.Fanclub, error)
}

// Config pipeline parameters
type Config struct {
	// RadiusMeters proximity radius
	RadiusMeters float64
	// PushCooldown minimum time between two pushes to the same member
	PushCooldown time.Duration
	// Workers number of parallel event handlers
	Workers int
	// QueueSize queued events per worker
	QueueSize int
}

// Dependencies pipeline collaborators. Metrics and Tracer may be nil.
type Dependencies struct {
	Members     MemberLookup
	Index       index.Index
	Connections registry.Registry
	Throttle    throttle.Store
	Notifier    push.Notifier
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
}

// Pipeline proximity event pipeline
//
// Events are processed asynchronously by parallel workers with no ordering guarantee between
// events of the same member. Handler failures never propagate back to the submitter.
type Pipeline interface {
	// Submit queue a common.LocationUpdated or common.StatusUpdated, waiting at most until
	// ctxt is done for queue space
	Submit(ctxt context.Context, event interface{}) error
	// HandleLocationUpdated push nearby offline fan-club members about the member's arrival
	HandleLocationUpdated(ctxt context.Context, event common.LocationUpdated) error
	// HandleStatusUpdated tell nearby online fan-club members about the member's status
	HandleStatusUpdated(ctxt context.Context, event common.StatusUpdated) error
	// Start start the workers
	Start(wg *sync.WaitGroup) error
	// Stop stop the workers, dropping queued events
	Stop() error
}

// pipelineImpl implements Pipeline
type pipelineImpl struct {
	common.Component
	config Config
	Dependencies
	tp common.TaskProcessor
}

// NewPipeline define a new proximity event pipeline
func NewPipeline(ctxt context.Context, config Config, deps Dependencies) (Pipeline, error) {
	if config.RadiusMeters <= 0 {
		return nil, fmt.Errorf("proximity radius must be positive")
	}
	if deps.Members == nil || deps.Index == nil || deps.Connections == nil ||
		deps.Throttle == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("proximity pipeline missing dependencies")
	}
	tp, err := common.GetNewTaskDemuxProcessorInstance(
		ctxt, "proximity", config.QueueSize, config.Workers,
	)
	if err != nil {
		return nil, err
	}
	instance := &pipelineImpl{
		Component: common.Component{
			LogTags: log.Fields{"module": "proximity", "component": "pipeline"},
		},
		config:       config,
		Dependencies: deps,
		tp:           tp,
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(common.LocationUpdated{}), instance.processLocationUpdated,
	); err != nil {
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(common.StatusUpdated{}), instance.processStatusUpdated,
	); err != nil {
		return nil, err
	}
	return instance, nil
}

// Submit queue an event
func (p *pipelineImpl) Submit(ctxt context.Context, event interface{}) error {
	switch event.(type) {
	case common.LocationUpdated, common.StatusUpdated:
	default:
		return fmt.Errorf("unsupported proximity event %s", reflect.TypeOf(event))
	}
	return p.tp.Submit(ctxt, event)
}

// Start start the workers
func (p *pipelineImpl) Start(wg *sync.WaitGroup) error {
	return p.tp.StartEventLoop(wg)
}

// Stop stop the workers
func (p *pipelineImpl) Stop() error {
	return p.tp.StopEventLoop()
}

func (p *pipelineImpl) processLocationUpdated(ctxt context.Context, param interface{}) error {
	event, ok := param.(common.LocationUpdated)
	if !ok {
		return fmt.Errorf("received unexpected call parameter: %s", reflect.TypeOf(param))
	}
	return p.HandleLocationUpdated(ctxt, event)
}

func (p *pipelineImpl) processStatusUpdated(ctxt context.Context, param interface{}) error {
	event, ok := param.(common.StatusUpdated)
	if !ok {
		return fmt.Errorf("received unexpected call parameter: %s", reflect.TypeOf(param))
	}
	return p.HandleStatusUpdated(ctxt, event)
}

// refresh re-read the member named by the event
//
// Returns false if the member no longer exists. On any other read failure the event payload is
// used as is.
func (p *pipelineImpl) refresh(
	ctxt context.Context, logTags log.Fields, reported common.Member,
) (common.Member, bool) {
	fresh, err := p.Members.FindByName(ctxt, reported.Name)
	if err == nil {
		return fresh, true
	}
	if common.IsNotFound(err) {
		log.WithFields(logTags).Info("Member no longer exists. Dropping event.")
		return common.Member{}, false
	}
	log.WithError(err).WithFields(logTags).Warn("Unable to re-read member. Using event payload.")
	return reported, true
}

// sameFanclubNeighbors members of the subject's fan-club near the subject with the given online
// flag
func (p *pipelineImpl) sameFanclubNeighbors(
	ctxt context.Context, subject common.Member, online bool,
) ([]common.Member, error) {
	nearby, err := p.Index.FindNear(ctxt, subject.Name, subject.Location, p.config.RadiusMeters)
	if err != nil {
		return nil, err
	}
	result := []common.Member{}
	for _, neighbor := range nearby {
		if neighbor.FanclubID != subject.FanclubID || neighbor.Online != online {
			continue
		}
		result = append(result, neighbor)
	}
	return result, nil
}

// HandleStatusUpdated tell nearby online fan-club members about the member's status
func (p *pipelineImpl) HandleStatusUpdated(ctxt context.Context, event common.StatusUpdated) error {
	start := time.Now()
	logTags := p.ExtendLogTags(log.Fields{"event": "status", "member": event.Member.Name})
	ctxt, span := p.Tracer.Start(
		ctxt, "proximity.status_updated", attribute.String("member", event.Member.Name),
	)
	defer span.End()

	subject, ok := p.refresh(ctxt, logTags, event.Member)
	if !ok {
		p.Metrics.ProximityEvent("status", "dropped", time.Since(start))
		return nil
	}

	neighbors, err := p.sameFanclubNeighbors(ctxt, subject, true)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Proximity query failed")
		observability.RecordError(span, err)
		p.Metrics.ProximityEvent("status", "dropped", time.Since(start))
		return nil
	}

	payload := common.StatusEventPayload{
		SubjectName:   subject.Name,
		SubjectOnline: subject.Online,
		EventKind:     common.EventKindStatus,
	}
	delivered := 0
	for _, neighbor := range neighbors {
		err := p.Connections.Send(neighbor.Name, subject.Name, payload)
		switch {
		case err == nil:
			delivered++
		case common.IsNotFound(err):
			log.WithFields(logTags).Debugf("%s has no live connection. Skipping.", neighbor.Name)
		default:
			log.WithError(err).WithFields(logTags).Errorf("Status event to %s failed", neighbor.Name)
		}
	}
	span.SetAttributes(
		attribute.Int("neighbors", len(neighbors)), attribute.Int("delivered", delivered),
	)
	log.WithFields(logTags).Debugf(
		"Status online=%v sent to %d of %d nearby members", subject.Online, delivered, len(neighbors),
	)
	p.Metrics.ProximityEvent("status", "handled", time.Since(start))
	return nil
}

// HandleLocationUpdated push nearby offline fan-club members about the member's arrival
func (p *pipelineImpl) HandleLocationUpdated(
	ctxt context.Context, event common.LocationUpdated,
) error {
	start := time.Now()
	logTags := p.ExtendLogTags(log.Fields{"event": "location", "member": event.Member.Name})
	ctxt, span := p.Tracer.Start(
		ctxt, "proximity.location_updated", attribute.String("member", event.Member.Name),
	)
	defer span.End()

	subject, ok := p.refresh(ctxt, logTags, event.Member)
	if !ok {
		p.Metrics.ProximityEvent("location", "dropped", time.Since(start))
		return nil
	}

	fanclub, err := p.Members.FindFanclub(ctxt, subject.FanclubID)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Unable to resolve fan-club '%s'. Dropping event.", subject.FanclubID,
		)
		observability.RecordError(span, err)
		p.Metrics.ProximityEvent("location", "dropped", time.Since(start))
		return nil
	}

	neighbors, err := p.sameFanclubNeighbors(ctxt, subject, false)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Proximity query failed")
		observability.RecordError(span, err)
		p.Metrics.ProximityEvent("location", "dropped", time.Since(start))
		return nil
	}

	title := fmt.Sprintf(PushTitleTemplate, fanclub.Name)
	body := fmt.Sprintf(PushBodyTemplate, subject.Name, fanclub.Name)
	pushed := 0
	for _, neighbor := range neighbors {
		if p.pushTo(ctxt, logTags, neighbor, title, body) {
			pushed++
		}
	}
	span.SetAttributes(
		attribute.Int("neighbors", len(neighbors)), attribute.Int("pushed", pushed),
	)
	log.WithFields(logTags).Debugf("Pushed %d of %d nearby offline members", pushed, len(neighbors))
	p.Metrics.ProximityEvent("location", "handled", time.Since(start))
	return nil
}

// pushTo send one throttled push. Returns whether a push was delivered.
func (p *pipelineImpl) pushTo(
	ctxt context.Context, logTags log.Fields, recipient common.Member, title, body string,
) bool {
	if recipient.PushToken == "" {
		log.WithFields(logTags).Debugf("%s has no push token. Skipping.", recipient.Name)
		p.Metrics.PushResult("skipped")
		return false
	}

	recent, err := p.Throttle.WasRecentlyNotified(ctxt, recipient.Name, p.config.PushCooldown)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Throttle check for %s failed. Skipping.", recipient.Name,
		)
		p.Metrics.PushResult("failed")
		return false
	}
	if recent {
		log.WithFields(logTags).Debugf("%s was recently notified. Skipping.", recipient.Name)
		p.Metrics.PushResult("throttled")
		return false
	}

	sendErr := p.Notifier.Send(ctxt, push.Notification{
		Member: recipient.Name, Token: recipient.PushToken, Title: title, Body: body,
	})

	// The attempt starts the cooldown whether or not it was delivered
	if err := p.Throttle.RecordNotified(ctxt, recipient.Name); err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Unable to record push to %s", recipient.Name,
		)
	}

	if sendErr != nil {
		log.WithError(sendErr).WithFields(logTags).Errorf("Push to %s failed", recipient.Name)
		p.Metrics.PushResult("failed")
		return false
	}
	p.Metrics.PushResult("sent")
	return true
}
