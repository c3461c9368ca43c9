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

// Package index proximity queries over the member store
package index

import (
	"context"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"
)

// Source radius query of the durable member store
//
// Results may include the member at the query point.
type Source interface {
	FindNear(ctxt context.Context, point common.Point, radiusMeters float64) ([]common.Member, error)
}

// Index proximity query relative to a reference member
type Index interface {
	// FindNear members within radiusMeters of point, never including reference
	FindNear(
		ctxt context.Context, reference string, point common.Point, radiusMeters float64,
	) ([]common.Member, error)
}

// storeIndex Index over a member store Source
type storeIndex struct {
	common.Component
	source Source
}

// NewIndex define an Index over source
func NewIndex(source Source) Index {
	return &storeIndex{
		Component: common.Component{
			LogTags: log.Fields{"module": "index", "component": "geo-index"},
		},
		source: source,
	}
}

// FindNear members within radiusMeters of point, never including reference
func (i *storeIndex) FindNear(
	ctxt context.Context, reference string, point common.Point, radiusMeters float64,
) ([]common.Member, error) {
	candidates, err := i.source.FindNear(ctxt, point, radiusMeters)
	if err != nil {
		log.WithError(err).WithFields(i.ExtendLogTags(log.Fields{"member": reference})).
			Errorf("Radius query around %s failed", point)
		return nil, err
	}
	result := make([]common.Member, 0, len(candidates))
	for _, member := range candidates {
		if member.Name == reference {
			continue
		}
		result = append(result, member)
	}
	return result, nil
}
