//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Command piqi runs the PIQI data quality evaluation engine, either as
// an HTTP server or as a one-shot message evaluator.
package main

func main() {
	Execute()
}
