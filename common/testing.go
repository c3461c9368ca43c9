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

import "os"

// GetUnitTestNatsURI fetch the NATS server URI used by integration tests
//
// Returns false when UNITTEST_NATS_URI is not set so tests needing a server can skip.
func GetUnitTestNatsURI() (string, bool) {
	return os.LookupEnv("UNITTEST_NATS_URI")
}

// GetUnitTestPostgresDSN fetch the PostgreSQL DSN used by integration tests
//
// Returns false when UNITTEST_POSTGRES_DSN is not set so tests needing a server can skip.
func GetUnitTestPostgresDSN() (string, bool) {
	return os.LookupEnv("UNITTEST_POSTGRES_DSN")
}
