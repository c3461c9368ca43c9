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
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestTaskParamProcessing(t *testing.T) {
	assert := assert.New(t)

	ctxt, cancel := context.WithCancel(context.Background())
	defer cancel()
	uut, err := GetNewTaskProcessorInstance(ctxt, "testing", 4)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.StopEventLoop())
	}()

	// Case 0: invalid buffer size
	{
		_, err := GetNewTaskProcessorInstance(ctxt, "testing", 0)
		assert.NotNil(err)
	}

	// Case 1: no executor map
	{
		assert.NotNil(uut.ProcessNewTaskParam("hello"))
	}

	type testStruct1 struct{}
	type testStruct2 struct{}
	type testStruct3 struct{}

	// Case 2: define handlers
	{
		assert.Nil(uut.AddToTaskExecutionMap(
			reflect.TypeOf(testStruct1{}), func(_ context.Context, p interface{}) error {
				return nil
			},
		))
		assert.Nil(uut.AddToTaskExecutionMap(
			reflect.TypeOf(testStruct3{}), func(_ context.Context, p interface{}) error {
				return fmt.Errorf("dummy error")
			},
		))
		assert.Nil(uut.ProcessNewTaskParam(testStruct1{}))
		assert.NotNil(uut.ProcessNewTaskParam(testStruct2{}))
		assert.NotNil(uut.ProcessNewTaskParam(&testStruct3{}))
		assert.NotNil(uut.ProcessNewTaskParam(testStruct3{}))
	}

	// Case 3: append to existing map
	{
		assert.Nil(uut.AddToTaskExecutionMap(
			reflect.TypeOf(&testStruct2{}), func(_ context.Context, p interface{}) error {
				return nil
			},
		))
		assert.Nil(uut.ProcessNewTaskParam(&testStruct2{}))
	}
}

func TestTaskProcessorSubmitBounded(t *testing.T) {
	assert := assert.New(t)

	ctxt, cancel := context.WithCancel(context.Background())
	defer cancel()
	uut, err := GetNewTaskProcessorInstance(ctxt, "testing", 1)
	assert.Nil(err)

	// Event loop not started; the buffer holds exactly one entry
	{
		useContext, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
		assert.Nil(uut.Submit(useContext, "first"))
		cancel()
	}
	{
		useContext, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
		assert.NotNil(uut.Submit(useContext, "second"))
		cancel()
	}

	// Stopped processor rejects new tasks
	assert.Nil(uut.StopEventLoop())
	assert.NotNil(uut.Submit(context.Background(), "third"))
}

func TestTaskDemuxProcessing(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	ctxt, cancel := context.WithCancel(context.Background())
	defer cancel()
	uut, err := GetNewTaskDemuxProcessorInstance(ctxt, "testing", 4, 3)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.StopEventLoop())
	}()

	// recast to source
	uutc := uut.(*taskDemuxProcessorImpl)
	assert.Equal(uint64(0), uutc.routeIdx)

	assert.Nil(uut.StartEventLoop(&wg))

	type testStruct1 struct{}
	type testStruct2 struct{}

	lock := sync.Mutex{}
	path1 := 0
	path2 := 0
	testWG := sync.WaitGroup{}
	assert.Nil(uut.AddToTaskExecutionMap(
		reflect.TypeOf(testStruct1{}), func(_ context.Context, p interface{}) error {
			lock.Lock()
			path1++
			lock.Unlock()
			testWG.Done()
			return nil
		},
	))
	assert.Nil(uut.AddToTaskExecutionMap(
		reflect.TypeOf(testStruct2{}), func(_ context.Context, p interface{}) error {
			lock.Lock()
			path2++
			lock.Unlock()
			testWG.Done()
			return nil
		},
	))

	// Case 1: trigger
	{
		testWG.Add(1)
		useContext, cancel := context.WithTimeout(context.Background(), time.Second)
		assert.Nil(uut.Submit(useContext, testStruct1{}))
		cancel()
		testWG.Wait()
		assert.Equal(1, path1)
		assert.Equal(uint64(1), uutc.routeIdx)
	}

	// Case 2: trigger back to back, spreading over the workers
	{
		testWG.Add(3)
		for _, param := range []interface{}{testStruct1{}, testStruct2{}, testStruct2{}} {
			useContext, cancel := context.WithTimeout(context.Background(), time.Second)
			assert.Nil(uut.Submit(useContext, param))
			cancel()
		}
		testWG.Wait()
		assert.Equal(2, path1)
		assert.Equal(2, path2)
		assert.Equal(uint64(4), uutc.routeIdx)
	}

	// Case 3: invalid worker count
	{
		_, err := GetNewTaskDemuxProcessorInstance(ctxt, "testing", 4, 0)
		assert.NotNil(err)
	}
}
