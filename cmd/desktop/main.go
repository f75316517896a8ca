package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/lyallcooper/songbird/internal/app"
	"github.com/lyallcooper/songbird/internal/webfs"
)

// Version info - injected at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	svc, err := app.New(app.Options{
		Version: version,
		Commit:  commit,
	})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Start cleanup loop
	cleanupCancel, cleanupDone := svc.StartCleanupLoop()

	desktopApp := NewApp(svc)

	// Files passed on launch by the OS file association
	if accepted := desktopApp.enqueueLaunchArgs(os.Args[1:]); len(accepted) > 0 {
		log.Printf("Queued %d file(s) from launch arguments", len(accepted))
	}

	err = wails.Run(&options.App{
		Title:     "Songbird",
		Width:     1200,
		Height:    800,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: webfs.FS,
		},
		OnStartup: func(ctx context.Context) {
			desktopApp.startup(ctx)
			if err := svc.StartScheduler(desktopApp.progress); err != nil {
				log.Printf("Warning: background rescans disabled: %v", err)
			}
		},
		OnShutdown: func(ctx context.Context) {
			log.Println("Shutting down...")
			cleanupCancel()
			<-cleanupDone
			desktopApp.shutdown()
			svc.Cleanup()
			log.Println("Shutdown complete")
		},
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId:               "com.lyallcooper.songbird",
			OnSecondInstanceLaunch: desktopApp.onSecondInstance,
		},
		Bind: []interface{}{
			desktopApp,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: false,
			},
			About: &mac.AboutInfo{
				Title:   "Songbird",
				Message: fmt.Sprintf("Music Library\n\nVersion: %s", svc.Version),
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
	})

	if err != nil {
		log.Fatalf("Wails error: %v", err)
	}
}
