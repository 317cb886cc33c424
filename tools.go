// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build tools

// Package main pins the test runners used by the integration suite to go.mod.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
	_ "github.com/stretchr/testify/mock"
)
