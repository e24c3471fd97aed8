package main

// aliases maps a bare, commonly-typed name to the specific formula name
// that should actually be looked up. Applied by install/info/search
// before formula resolution.
var aliases = map[string]string{
	"python":   "python@3.13",
	"node":     "node@22",
	"postgres": "postgresql@17",
	"mysql":    "mysql@9.1",
	"java":     "openjdk@23",
	"go":       "go@1.23",
}

// resolveAlias returns aliases[name] when present, otherwise name
// unchanged. Callers that fail to resolve the aliased name fall back to
// trying the original spelling.
func resolveAlias(name string) string {
	if aliased, ok := aliases[name]; ok {
		return aliased
	}
	return name
}
