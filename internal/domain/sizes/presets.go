package sizes

// Category groups presets for listing.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

var builtinCategories = []Category{
	{ID: "favicon", Label: "Favicons"},
	{ID: "ios", Label: "iOS"},
	{ID: "android", Label: "Android"},
	{ID: "pwa", Label: "PWA"},
	{ID: "social", Label: "Social Media"},
	{ID: "windows", Label: "Windows"},
	{ID: "store", Label: "App Stores"},
}

func png(id, label string, w, h int, filename, category string) SizeSpec {
	return SizeSpec{ID: id, Label: label, Width: w, Height: h, Format: FormatPNG, Filename: filename, Category: category}
}

func maskable(id, label string, n int, filename string) SizeSpec {
	s := png(id, label, n, n, filename, "pwa")
	s.Maskable = true
	return s
}

var builtinPresets = []SizeSpec{
	{
		ID: "favicon-ico", Label: "favicon.ico (16, 32, 48)", Width: 48, Height: 48,
		Format: FormatICO, Filename: "favicon.ico", Category: "favicon",
		IconResolutions: []int{16, 32, 48},
	},
	png("favicon-16", "Favicon 16x16", 16, 16, "favicon-16x16.png", "favicon"),
	png("favicon-32", "Favicon 32x32", 32, 32, "favicon-32x32.png", "favicon"),
	png("favicon-48", "Favicon 48x48", 48, 48, "favicon-48x48.png", "favicon"),
	png("favicon-96", "Favicon 96x96", 96, 96, "favicon-96x96.png", "favicon"),

	png("apple-touch-icon", "Apple Touch Icon", 180, 180, "apple-touch-icon.png", "ios"),
	png("ios-ipad-pro", "iPad Pro", 167, 167, "apple-touch-icon-167x167.png", "ios"),
	png("ios-ipad", "iPad", 152, 152, "apple-touch-icon-152x152.png", "ios"),
	png("ios-iphone-legacy", "iPhone (legacy)", 120, 120, "apple-touch-icon-120x120.png", "ios"),
	png("ios-app-store", "App Store", 1024, 1024, "ios-app-store-1024x1024.png", "ios"),

	png("android-mdpi", "Android mdpi", 48, 48, "android-mdpi-48x48.png", "android"),
	png("android-hdpi", "Android hdpi", 72, 72, "android-hdpi-72x72.png", "android"),
	png("android-xhdpi", "Android xhdpi", 96, 96, "android-xhdpi-96x96.png", "android"),
	png("android-xxhdpi", "Android xxhdpi", 144, 144, "android-xxhdpi-144x144.png", "android"),
	png("android-xxxhdpi", "Android xxxhdpi", 192, 192, "android-xxxhdpi-192x192.png", "android"),

	png("android-192", "PWA 192x192", 192, 192, "android-chrome-192x192.png", "pwa"),
	png("android-512", "PWA 512x512", 512, 512, "android-chrome-512x512.png", "pwa"),
	maskable("pwa-maskable-192", "PWA Maskable 192x192", 192, "maskable-icon-192x192.png"),
	maskable("pwa-maskable-512", "PWA Maskable 512x512", 512, "maskable-icon-512x512.png"),

	png("og-image", "Open Graph", 1200, 630, "og-image-1200x630.png", "social"),
	png("twitter-card", "Twitter Card", 1200, 600, "twitter-card-1200x600.png", "social"),
	png("linkedin-banner", "LinkedIn Banner", 1584, 396, "linkedin-banner-1584x396.png", "social"),
	png("youtube-thumbnail", "YouTube Thumbnail", 1280, 720, "youtube-thumbnail-1280x720.png", "social"),
	png("instagram-post", "Instagram Post", 1080, 1080, "instagram-post-1080x1080.png", "social"),

	png("mstile-70", "Windows Tile Small", 70, 70, "mstile-70x70.png", "windows"),
	png("mstile-150", "Windows Tile Medium", 150, 150, "mstile-150x150.png", "windows"),
	png("mstile-310", "Windows Tile Large", 310, 310, "mstile-310x310.png", "windows"),
	png("mstile-310x150", "Windows Tile Wide", 310, 150, "mstile-310x150.png", "windows"),

	png("play-store", "Google Play Icon", 512, 512, "play-store-512x512.png", "store"),
	png("play-feature-graphic", "Google Play Feature Graphic", 1024, 500, "play-feature-1024x500.png", "store"),
}
