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

package common

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/apex/log"
)

// TaskHandler a handler function which execute a task based on parameters
type TaskHandler func(ctxt context.Context, taskParam interface{}) error

// TaskProcessor processing module for implementing an event loop model
type TaskProcessor interface {
	// Submit queue a new task parameter, waiting at most until useContext is done
	Submit(useContext context.Context, newTaskParam interface{}) error
	// ProcessNewTaskParam execute the handler registered for the task parameter type
	ProcessNewTaskParam(newTaskParam interface{}) error
	// AddToTaskExecutionMap register the handler for a task parameter type
	AddToTaskExecutionMap(theType reflect.Type, handler TaskHandler) error
	// StartEventLoop start processing queued tasks
	StartEventLoop(wg *sync.WaitGroup) error
	// StopEventLoop stop processing, dropping any queued tasks
	StopEventLoop() error
}

// taskProcessorImpl implement TaskProcessor
type taskProcessorImpl struct {
	Component
	name             string
	operationContext context.Context
	contextCancel    context.CancelFunc
	newTasks         chan interface{}
	executionMap     map[reflect.Type]TaskHandler
	mapLock          sync.RWMutex
}

// GetNewTaskProcessorInstance get instance of TaskProcessor
func GetNewTaskProcessorInstance(
	ctxt context.Context, name string, taskBuffer int,
) (TaskProcessor, error) {
	if taskBuffer < 1 {
		return nil, fmt.Errorf("task buffer of %s must be at least 1", name)
	}
	logTags := log.Fields{
		"module": "common", "component": "task-processor", "instance": name,
	}
	opCtxt, cancel := context.WithCancel(ctxt)
	return &taskProcessorImpl{
		Component:        Component{LogTags: logTags},
		name:             name,
		operationContext: opCtxt,
		contextCancel:    cancel,
		newTasks:         make(chan interface{}, taskBuffer),
		executionMap:     make(map[reflect.Type]TaskHandler),
	}, nil
}

// Submit submit a new task parameter for processing
func (p *taskProcessorImpl) Submit(useContext context.Context, newTaskParam interface{}) error {
	select {
	case p.newTasks <- newTaskParam:
		return nil
	case <-useContext.Done():
		return fmt.Errorf("[TP %s] submit abandoned: %w", p.name, useContext.Err())
	case <-p.operationContext.Done():
		return fmt.Errorf("[TP %s] processor stopped", p.name)
	}
}

// AddToTaskExecutionMap add a new entry to the task param to execution mapping
func (p *taskProcessorImpl) AddToTaskExecutionMap(theType reflect.Type, handler TaskHandler) error {
	log.WithFields(p.LogTags).Debugf("Appending to task execution mapping for %s", theType)
	p.mapLock.Lock()
	defer p.mapLock.Unlock()
	p.executionMap[theType] = handler
	return nil
}

// StopEventLoop stop the task param processing event loop
func (p *taskProcessorImpl) StopEventLoop() error {
	log.WithFields(p.LogTags).Info("Stopping event loop")
	p.contextCancel()
	return nil
}

// ProcessNewTaskParam process a new task param
func (p *taskProcessorImpl) ProcessNewTaskParam(newTaskParam interface{}) error {
	p.mapLock.RLock()
	theHandler, ok := p.executionMap[reflect.TypeOf(newTaskParam)]
	p.mapLock.RUnlock()
	if !ok {
		return fmt.Errorf(
			"[TP %s] No matching handler found for %s", p.name, reflect.TypeOf(newTaskParam),
		)
	}
	return theHandler(p.operationContext, newTaskParam)
}

// StartEventLoop start the event loop
func (p *taskProcessorImpl) StartEventLoop(wg *sync.WaitGroup) error {
	log.WithFields(p.LogTags).Info("Starting event loop")
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer log.WithFields(p.LogTags).Info("Event loop exiting")
		for {
			select {
			case <-p.operationContext.Done():
				return
			case newTaskParam := <-p.newTasks:
				if err := p.ProcessNewTaskParam(newTaskParam); err != nil {
					log.WithError(err).WithFields(p.LogTags).Error("Failed to process new task param")
				}
			}
		}
	}()
	return nil
}

// ==============================================================================

// taskDemuxProcessorImpl implement TaskProcessor but support multiple parallel workers
type taskDemuxProcessorImpl struct {
	Component
	name     string
	workers  []TaskProcessor
	routeIdx uint64
	idxLock  sync.Mutex
}

// GetNewTaskDemuxProcessorInstance get instance of TaskDemuxProcessor
//
// Tasks are spread round-robin across workerNum independent event loops, so two
// tasks may be processed in parallel and in any order.
func GetNewTaskDemuxProcessorInstance(
	ctxt context.Context, name string, taskBuffer int, workerNum int,
) (TaskProcessor, error) {
	if workerNum < 1 {
		return nil, fmt.Errorf("[TDP %s] at least one worker required", name)
	}
	workers := make([]TaskProcessor, workerNum)
	for itr := 0; itr < workerNum; itr++ {
		workerTP, err := GetNewTaskProcessorInstance(
			ctxt, fmt.Sprintf("%s.worker.%d", name, itr), taskBuffer,
		)
		if err != nil {
			return nil, err
		}
		workers[itr] = workerTP
	}
	logTags := log.Fields{
		"module": "common", "component": "task-demux-processor", "instance": name,
	}
	return &taskDemuxProcessorImpl{
		Component: Component{LogTags: logTags},
		name:      name,
		workers:   workers,
	}, nil
}

// nextWorker select the worker for the next task
func (p *taskDemuxProcessorImpl) nextWorker() TaskProcessor {
	p.idxLock.Lock()
	defer p.idxLock.Unlock()
	worker := p.workers[p.routeIdx%uint64(len(p.workers))]
	p.routeIdx++
	return worker
}

// Submit submit a new task parameter to one of the workers
func (p *taskDemuxProcessorImpl) Submit(useContext context.Context, newTaskParam interface{}) error {
	return p.nextWorker().Submit(useContext, newTaskParam)
}

// ProcessNewTaskParam process the task param synchronously on one of the workers' handlers
func (p *taskDemuxProcessorImpl) ProcessNewTaskParam(newTaskParam interface{}) error {
	return p.nextWorker().ProcessNewTaskParam(newTaskParam)
}

// AddToTaskExecutionMap add a new entry to the task param to execution mapping
func (p *taskDemuxProcessorImpl) AddToTaskExecutionMap(
	theType reflect.Type, handler TaskHandler,
) error {
	for _, worker := range p.workers {
		if err := worker.AddToTaskExecutionMap(theType, handler); err != nil {
			return err
		}
	}
	return nil
}

// StartEventLoop start the event loop
func (p *taskDemuxProcessorImpl) StartEventLoop(wg *sync.WaitGroup) error {
	log.WithFields(p.LogTags).Infof("Starting %d worker loops", len(p.workers))
	for _, worker := range p.workers {
		if err := worker.StartEventLoop(wg); err != nil {
			return err
		}
	}
	return nil
}

// StopEventLoop stop the task param processing event loop
func (p *taskDemuxProcessorImpl) StopEventLoop() error {
	log.WithFields(p.LogTags).Info("Stopping event loops")
	for _, worker := range p.workers {
		_ = worker.StopEventLoop()
	}
	return nil
}
