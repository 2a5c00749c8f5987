// Package boundary implements the C-compatible surface of the Majestik
// World core: result codes, the lifecycle handle table, and the buffer
// ownership protocol for heap allocations handed to a foreign engine host.
// All validation lives here, in pure Go, so the whole protocol is covered
// by ordinary tests; cmd/bridge only flattens these types to the literal C
// ABI.
package boundary

import (
	"errors"
	"log"
	"os"

	"majestik.world/internal/sim/core"
)

// Result is the closed set of codes returned by every boundary entry point.
// No errors cross the boundary in any other form.
type Result int32

const (
	ResultSuccess          Result = 0
	ResultNullPointer      Result = 1
	ResultInvalidMapSize   Result = 2
	ResultInvalidDayCycle  Result = 3
	ResultInvalidDeltaTime Result = 4
	ResultInvalidGameMode  Result = 5
	ResultBufferTooLarge   Result = 6
	ResultInternalError    Result = 255
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultNullPointer:
		return "null pointer"
	case ResultInvalidMapSize:
		return "invalid map size"
	case ResultInvalidDayCycle:
		return "invalid day cycle coefficient"
	case ResultInvalidDeltaTime:
		return "invalid delta time"
	case ResultInvalidGameMode:
		return "invalid game mode"
	case ResultBufferTooLarge:
		return "buffer too large"
	case ResultInternalError:
		return "internal error"
	default:
		return "unknown result"
	}
}

func resultFromInitError(err error) Result {
	switch {
	case errors.Is(err, core.ErrInvalidMapSize):
		return ResultInvalidMapSize
	case errors.Is(err, core.ErrInvalidDayCycleCoefficient):
		return ResultInvalidDayCycle
	case errors.Is(err, core.ErrInvalidGameMode):
		return ResultInvalidGameMode
	default:
		return ResultInternalError
	}
}

// diag carries boundary diagnostics (free-validation failures, registry
// recovery, buffer creation failures). The host process cannot receive Go
// errors, so these go to stderr the way the rest of the runtime logs.
var diag = log.New(os.Stderr, "[boundary] ", log.LstdFlags|log.Lmicroseconds)
