package app

// Version is the dashcore version (set via ldflags during build).
var Version = "dev"

// Built-in slot IDs.
const (
	SlotHeader  = "dashboard:header"
	SlotMain    = "dashboard:main"
	SlotSidebar = "dashboard:sidebar"
	SlotStatus  = "dashboard:status"
)

// DefaultPage is used when no page is supplied.
const DefaultPage = `<!DOCTYPE html>
<html>
<head><title>dashcore</title></head>
<body>
<header data-slot="dashboard:header"></header>
<aside data-slot="dashboard:sidebar"></aside>
<main data-slot="dashboard:main"></main>
<footer data-slot="dashboard:status"></footer>
</body>
</html>
`
