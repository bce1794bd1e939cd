package autopak

import (
	"context"

	"github.com/oshokin/autopak/internal/logger"
)

// state is a step of the packaging run.
type state string

const (
	stateInit      state = "init"
	stateValidate  state = "validate"
	stateEnumerate state = "enumerate"
	stateStage     state = "stage"
	statePack      state = "pack"
	stateUnstage   state = "unstage"
	stateDone      state = "done"
	// stateAbort is reachable from validate only; nothing is staged yet.
	stateAbort state = "abort"
)

func enter(ctx context.Context, s state) {
	logger.DebugKV(ctx, "Entering state", "state", string(s))
}
