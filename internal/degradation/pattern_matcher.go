package degradation

import (
	"regexp"
	"strings"
)

// PatternMatch is one successful local pattern match.
type PatternMatch struct {
	Type       string
	Command    string
	Confidence float64
}

type compiledPattern struct {
	re      *regexp.Regexp
	command string
}

// PatternMatcher offers offline, regex-based command suggestions for
// common package operations when no LLM or cache entry is available
// over a fixed catalog of install/operation phrasings, substituting
// capture groups into canned apt commands.
type PatternMatcher struct {
	install []compiledPattern
	ops     []compiledPattern
}

var installPatterns = []struct{ pattern, command string }{
	{`(?i)(?:install|setup|add)\s+(?:node|nodejs)`, "sudo apt install nodejs npm"},
	{`(?i)(?:install|setup|add)\s+(?:python|python3)`, "sudo apt install python3 python3-pip python3-venv"},
	{`(?i)(?:install|setup|add)\s+(?:docker)`, "sudo apt install docker.io docker-compose"},
	{`(?i)(?:install|setup|add)\s+(?:nginx)`, "sudo apt install nginx"},
	{`(?i)(?:install|setup|add)\s+(?:postgresql|postgres)`, "sudo apt install postgresql postgresql-contrib"},
	{`(?i)(?:install|setup|add)\s+(?:mysql|mariadb)`, "sudo apt install mysql-server"},
	{`(?i)(?:install|setup|add)\s+(?:redis)`, "sudo apt install redis-server"},
	{`(?i)(?:install|setup|add)\s+(?:mongodb)`, "sudo apt install mongodb"},
	{`(?i)(?:install|setup|add)\s+(?:git)`, "sudo apt install git"},
	{`(?i)(?:install|setup|add)\s+(?:vim|neovim)`, "sudo apt install neovim"},
	{`(?i)(?:install|setup|add)\s+(?:curl)`, "sudo apt install curl"},
	{`(?i)(?:install|setup|add)\s+(?:wget)`, "sudo apt install wget"},
	{`(?i)(?:install|setup|add)\s+(?:htop)`, "sudo apt install htop"},
	{`(?i)(?:install|setup|add)\s+(?:tmux)`, "sudo apt install tmux"},
	{`(?i)(?:install|setup|add)\s+(?:rust|rustc|cargo)`, "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh"},
	{`(?i)(?:install|setup|add)\s+(?:go|golang)`, "sudo apt install golang-go"},
	{`(?i)(?:install|setup|add)\s+(?:java|openjdk)`, "sudo apt install default-jdk"},
	{`(?i)(?:install|setup|add)\s+(?:cuda|nvidia.?driver)`, "sudo apt install nvidia-driver-535 nvidia-cuda-toolkit"},
	{`(?i)(?:install|setup|add)\s+(?:tensorflow)`, "pip install tensorflow"},
	{`(?i)(?:install|setup|add)\s+(?:pytorch|torch)`, "pip install torch torchvision torchaudio"},
}

var operationPatterns = []struct{ pattern, command string }{
	{`(?i)(?:update|upgrade)\s+(?:system|all|packages)`, "sudo apt update && sudo apt upgrade -y"},
	{`(?i)(?:clean|cleanup)\s+(?:system|apt|packages)`, "sudo apt autoremove -y && sudo apt autoclean"},
	{`(?i)(?:search|find)\s+(?:for\s+)?(?:package\s+)?(.+)`, "apt search {0}"},
	{`(?i)(?:remove|uninstall|delete)\s+(.+)`, "sudo apt remove {0}"},
	{`(?i)(?:info|details|about)\s+(.+)`, "apt show {0}"},
	{`(?i)(?:list)\s+(?:installed)`, "apt list --installed"},
}

// NewPatternMatcher compiles the install/operation pattern tables.
func NewPatternMatcher() *PatternMatcher {
	pm := &PatternMatcher{}
	for _, p := range installPatterns {
		pm.install = append(pm.install, compiledPattern{re: regexp.MustCompile(p.pattern), command: p.command})
	}
	for _, p := range operationPatterns {
		pm.ops = append(pm.ops, compiledPattern{re: regexp.MustCompile(p.pattern), command: p.command})
	}
	return pm
}

// Match tries install patterns first, then operation patterns,
// substituting any captured groups into the {0} placeholder.
func (pm *PatternMatcher) Match(query string) (PatternMatch, bool) {
	for _, cp := range pm.install {
		if cp.re.MatchString(query) {
			return PatternMatch{Type: "install", Command: cp.command, Confidence: 0.8}, true
		}
	}

	for _, cp := range pm.ops {
		m := cp.re.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		command := cp.command
		if len(m) > 1 && m[1] != "" {
			command = strings.ReplaceAll(command, "{0}", m[1])
		}
		return PatternMatch{Type: "operation", Command: command, Confidence: 0.7}, true
	}

	return PatternMatch{}, false
}
