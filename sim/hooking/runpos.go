package hooking

// HookPosRunStart and HookPosRunEnd bracket a whole simulation run.
var (
	HookPosRunStart = &HookPos{Name: "HookPosRunStart"}
	HookPosRunEnd   = &HookPos{Name: "HookPosRunEnd"}
)
