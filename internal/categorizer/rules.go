package categorizer

// Rule maps a lowercase pattern to a category and a fixed productivity score.
type Rule struct {
	Pattern  string `json:"pattern" mapstructure:"pattern"`
	Category string `json:"category" mapstructure:"category"`
	Score    int    `json:"score" mapstructure:"score"`
}

const (
	CategoryDevelopment = "Development"
	CategoryBrowser     = "Browser"
	CategoryOther       = "Other"

	browserScore     = 50
	developmentScore = 90
	defaultScore     = 50
)

// Order matters: the first matching rule wins.
var defaultAppRules = []Rule{
	// Development tools
	{"vite", "Development", 90},
	{"code", "Development", 90},
	{"vscode", "Development", 90},
	{"visual studio code", "Development", 90},
	{"terminal", "Development", 90},
	{"iterm", "Development", 90},
	{"git", "Development", 90},
	{"github", "Development", 90},
	{"postman", "Development", 85},
	{"intellij", "Development", 90},
	{"webstorm", "Development", 90},
	{"goland", "Development", 90},
	{"android studio", "Development", 90},
	{"xcode", "Development", 90},

	// Communication & collaboration
	{"slack", "Communication", 70},
	{"teams", "Communication", 70},
	{"zoom", "Communication", 80},
	{"discord", "Communication", 60},
	{"skype", "Communication", 70},
	{"outlook", "Communication", 75},
	{"thunderbird", "Communication", 75},
	{"mail", "Communication", 75},

	// Productivity
	{"excel", "Productivity", 85},
	{"word", "Productivity", 85},
	{"powerpoint", "Productivity", 85},
	{"libreoffice", "Productivity", 85},
	{"numbers", "Productivity", 85},
	{"pages", "Productivity", 85},
	{"keynote", "Productivity", 85},
	{"notion", "Productivity", 85},
	{"evernote", "Productivity", 85},
	{"obsidian", "Productivity", 85},

	// Design
	{"figma", "Design", 85},
	{"sketch", "Design", 85},
	{"photoshop", "Design", 85},
	{"illustrator", "Design", 85},
	{"gimp", "Design", 85},
	{"inkscape", "Design", 85},
	{"xd", "Design", 85},
	{"indesign", "Design", 85},

	// Social media
	{"facebook", "Social Media", 10},
	{"instagram", "Social Media", 10},
	{"twitter", "Social Media", 10},
	{"tiktok", "Social Media", 5},
	{"reddit", "Social Media", 20},

	// Entertainment
	{"spotify", "Entertainment", 20},
	{"netflix", "Entertainment", 10},
	{"youtube", "Entertainment", 30},
	{"vlc", "Entertainment", 20},
	{"steam", "Entertainment", 5},
	{"music", "Entertainment", 20},
	{"photos", "Entertainment", 20},
}

// Matched as substrings of the URL, in order.
var defaultDomainRules = []Rule{
	{"github.com", "Development", 90},
	{"gitlab.com", "Development", 90},
	{"stackoverflow.com", "Development", 85},
	{"pkg.go.dev", "Development", 90},
	{"developer.mozilla.org", "Development", 85},
	{"atlassian.net", "Productivity", 80},
	{"docs.google.com", "Productivity", 85},
	{"notion.so", "Productivity", 85},
	{"figma.com", "Design", 85},
	{"mail.google.com", "Communication", 75},
	{"slack.com", "Communication", 70},
	{"meet.google.com", "Communication", 80},
	{"linkedin.com", "Social Media", 40},
	{"facebook.com", "Social Media", 10},
	{"instagram.com", "Social Media", 10},
	{"twitter.com", "Social Media", 10},
	{"://x.com", "Social Media", 10},
	{"reddit.com", "Social Media", 20},
	{"youtube.com", "Entertainment", 30},
	{"netflix.com", "Entertainment", 10},
	{"twitch.tv", "Entertainment", 10},
}

var defaultBrowsers = []string{
	"browser", "chrome", "chromium", "firefox", "safari", "edge", "opera", "brave", "vivaldi",
}

var systemApps = []string{
	"finder", "explorer", "gnome-shell", "plasmashell", "systemsettings",
	"system preferences", "system settings", "control panel", "task manager", "dock",
}

var devHints = []string{
	".js", ".ts", ".py", ".java", ".go", ".rs", ".html", ".css", ".json",
	"git", "npm", "node",
}
