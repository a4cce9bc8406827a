package common

import (
	"slurm2sql/status"
)

// MT: Constant after initialization; thread-safe
var Log status.Logger = status.Default()
