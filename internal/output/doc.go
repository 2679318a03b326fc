// Package output provides structured output and error handling for the
// cadence and flipscout CLIs.
//
// Every command talks to the user through a Printer, which switches between
// human-readable and JSON output. Hook subcommands additionally write
// protocol JSON directly; the Printer is for everything a human or agent
// reads outside the hook protocol.
//
// # Printer
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), jsonMode, output.IsTTY(cmd.OutOrStdout()))
//	printer.Success(map[string]any{"message": "task recorded", "id": task.ID})
//	printer.Error(err)
//
// # Exit codes
//
// Errors constructed in this package carry exit codes:
//
//	output.ExitSuccess     // 0: success
//	output.ExitUserError   // 1: user error (bad args, not found)
//	output.ExitSystemError // 2: system error (exec failed, I/O error)
//	output.ExitConflict    // 3: conflict (lock held, state mismatch)
//
// Untyped errors default to ExitUserError.
package output
