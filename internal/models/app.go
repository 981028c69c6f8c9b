package models

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Session     SessionSnapshot // Latest state pushed by core
	Input       string          // Image source input field
	Status      string          // Status bar text
	LoadingDots int             // Animation counter for loading dots
	Width       int             // Terminal width
	Height      int             // Terminal height
	Preview     string          // Rendered thumbnail cache
	PreviewKey  string          // Generation/size the cached thumbnail belongs to
}
