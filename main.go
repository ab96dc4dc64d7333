// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("go-learnsync - Offline Access Engine for Mobile Learning Clients")
	fmt.Println("================================================================")
	fmt.Println()
	fmt.Println("go-learnsync keeps enrolled courses, materials and assessments usable while")
	fmt.Println("disconnected, with trusted-time reconstruction, clock-tamper detection, a")
	fmt.Println("rolling offline budget, and exactly-once reconciliation of offline work.")
	fmt.Println()

	fmt.Println("Packages:")
	fmt.Println()
	fmt.Println("  learnsqlite/  SQLite-backed client engine: trusted time, tamper detection,")
	fmt.Println("                offline budget, availability gates, pending-work reconciler")
	fmt.Println("  learnsync/    Shared protocol: REST models, JWT auth, retry policy")
	fmt.Println()

	fmt.Println("Example:")
	fmt.Println()
	fmt.Println("  End-to-end offline demo (examples/offline_demo/)")
	fmt.Println("  Queues quiz attempts and file submissions offline, then reconciles them")
	fmt.Println("  against the bundled reference LMS server.")
	fmt.Println("  Run: go run ./examples/offline_demo")
	fmt.Println()
}
