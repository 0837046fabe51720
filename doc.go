// Package looper provides a long-running agentic sensory loop.
//
// A looper agent senses percepts from registered sensors, asks a cheap
// local reasoner whether anything is surprising, escalates surprises to
// a frontier reasoner for planning, and executes the planned actions
// through policy-guarded actuators. Every iteration is journaled.
//
// # Quick Start
//
// Install looper:
//
//	go install github.com/looperhq/looper/cmd/looper@latest
//
// Start the agent:
//
//	looper serve --workspace ./agent
//
// Store a provider key and select models:
//
//	looper keys set openai
//	curl -X POST localhost:10001/api/config/models -d '{
//	  "local_provider": "ollama",   "local_model": "llama3.2",
//	  "frontier_provider": "openai", "frontier_model": "gpt-4o"
//	}'
//
// Then feed it percepts and start the loop:
//
//	curl -X POST localhost:10001/api/percepts/chat -d '{"content": "check the build"}'
//	curl -X POST localhost:10001/api/loop/start -d '{}'
//
// # Using as Go Library
//
// Import the packages directly:
//
//	import (
//	    "github.com/looperhq/looper/pkg/engine"
//	    "github.com/looperhq/looper/pkg/sensor"
//	    "github.com/looperhq/looper/pkg/actuator"
//	)
//
// # Architecture
//
// Each iteration moves through a fixed phase order:
//
//	GatherPercepts → CheckSurprises → DeeperPerceptInvestigation →
//	PlanActions → ExecuteActions → Idle
//
// Iterations that find nothing surprising, or whose surprises produce
// an empty plan, end early. Actuators apply allowlists, denylists,
// rate limits, and human-in-the-loop approval before anything runs.
//
// # Alpha Status
//
// looper is in alpha development. APIs may change.
//
// # License
//
// Apache-2.0 - See LICENSE for details.
package looper
