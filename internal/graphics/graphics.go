package graphics

import (
	"context"

	rl "github.com/gen2brain/raylib-go/raylib"

	"carsim/internal/engineconfig"
)

// Run opens the window and drives the main loop. Each frame it calls update with
// the last frame time in seconds, then clears to white and calls draw.
// The loop ends when the window is closed, ESC is pressed or ctx is done.
func Run(ctx context.Context, cfg engineconfig.Window, update func(frameTime float32), draw func()) {
	if cfg.Fullscreen {
		rl.SetConfigFlags(rl.FlagFullscreenMode | rl.FlagMsaa4xHint)
	} else {
		rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	}
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), cfg.Title)
	defer rl.CloseWindow()

	if cfg.TargetFPS > 0 {
		rl.SetTargetFPS(int32(cfg.TargetFPS))
	}

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		update(rl.GetFrameTime())

		rl.BeginDrawing()
		rl.ClearBackground(rl.White)
		draw()
		rl.EndDrawing()
	}
}
