// @title image-sizer API
// @version 1.0
// @description Resizes one source image into favicon, app icon and social sizes and returns them as a zip or as job outputs.
// @host localhost:8080
// @BasePath /api
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"image-sizer-go/internal/bootstrap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $IMAGE_SIZER_CONFIG or ./config.yaml)")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [BOOT] starting image-sizer...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), bootstrap.Options{ConfigPath: *configPath}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "image-sizer failed: %v\n", err)
		os.Exit(1)
	}
}
