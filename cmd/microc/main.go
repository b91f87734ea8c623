// Command microc compiles a Micro-C source file to textual RISC-V-like
// assembly. Usage: microc <input-path> <register-count>.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}
