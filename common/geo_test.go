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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	assert := assert.New(t)

	origin := Point{Latitude: 0, Longitude: 0}

	// Case 0: same point
	assert.InDelta(0.0, DistanceMeters(origin, origin), 1e-9)

	// Case 1: roughly one meter along the diagonal
	{
		near := Point{Latitude: 0.00001, Longitude: 0.00001}
		dist := DistanceMeters(origin, near)
		assert.InDelta(1.57, dist, 0.01)
		assert.InDelta(dist, DistanceMeters(near, origin), 1e-9)
	}

	// Case 2: one degree of latitude
	{
		dist := DistanceMeters(origin, Point{Latitude: 1, Longitude: 0})
		assert.InDelta(111226.0, dist, 5.0)
	}
}

func TestBoundingBoxAround(t *testing.T) {
	assert := assert.New(t)

	// Case 0: box contains everything inside the radius
	{
		center := Point{Latitude: 37.5665, Longitude: 126.9780}
		box := BoundingBoxAround(center, 100)
		assert.True(box.Contains(center))
		assert.True(box.Contains(Point{Latitude: 37.5672, Longitude: 126.9780}))
		assert.True(box.Contains(Point{Latitude: 37.5665, Longitude: 126.9788}))
		assert.False(box.Contains(Point{Latitude: 37.5700, Longitude: 126.9780}))
	}

	// Case 1: near the anti-meridian the longitude window opens up
	{
		box := BoundingBoxAround(Point{Latitude: 10, Longitude: 179.99999}, 100)
		assert.Equal(-180.0, box.MinLongitude)
		assert.Equal(180.0, box.MaxLongitude)
	}

	// Case 2: near a pole
	{
		box := BoundingBoxAround(Point{Latitude: 89.99999, Longitude: 0}, 100)
		assert.Equal(90.0, box.MaxLatitude)
		assert.Equal(-180.0, box.MinLongitude)
	}
}

func TestWithinRadius(t *testing.T) {
	assert := assert.New(t)

	center := Point{Latitude: 0, Longitude: 0}
	members := []Member{
		{Name: "close", Location: Point{Latitude: 0.00001, Longitude: 0.00001}},
		{Name: "far", Location: Point{Latitude: 0.001, Longitude: 0.001}},
		{Name: "here", Location: center},
	}
	result := WithinRadius(center, 2, members)
	assert.Len(result, 2)
	assert.Equal("close", result[0].Name)
	assert.Equal("here", result[1].Name)
}
