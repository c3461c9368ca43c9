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

import "math"

// EarthRadiusMeters mean earth radius used for distance calculation
//
// Same value Redis GEO commands use, so distances agree with a Redis backed index.
const EarthRadiusMeters = 6372797.560856

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters great circle distance between two points using the haversine formula
func DistanceMeters(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundingBox a latitude / longitude window
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// Contains whether the point falls inside the box
func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.MinLatitude && p.Latitude <= b.MaxLatitude &&
		p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}

// BoundingBoxAround compute a box guaranteed to contain every point within radiusMeters
// of center. The box is a coarse pre-filter; callers must still check DistanceMeters.
func BoundingBoxAround(center Point, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters / EarthRadiusMeters * 180 / math.Pi
	box := BoundingBox{
		MinLatitude:  math.Max(-90, center.Latitude-latDelta),
		MaxLatitude:  math.Min(90, center.Latitude+latDelta),
		MinLongitude: -180,
		MaxLongitude: 180,
	}
	// Near the poles every longitude is within reach
	if box.MinLatitude <= -90 || box.MaxLatitude >= 90 {
		return box
	}
	maxAbsLat := math.Max(math.Abs(box.MinLatitude), math.Abs(box.MaxLatitude))
	lonDelta := latDelta / math.Cos(toRadians(maxAbsLat))
	minLon := center.Longitude - lonDelta
	maxLon := center.Longitude + lonDelta
	// Wrapping across the anti-meridian falls back to the full longitude range
	if minLon < -180 || maxLon > 180 {
		return box
	}
	box.MinLongitude = minLon
	box.MaxLongitude = maxLon
	return box
}

// WithinRadius filter members down to those within radiusMeters of center
func WithinRadius(center Point, radiusMeters float64, candidates []Member) []Member {
	result := make([]Member, 0, len(candidates))
	for _, candidate := range candidates {
		if DistanceMeters(center, candidate.Location) <= radiusMeters {
			result = append(result, candidate)
		}
	}
	return result
}
