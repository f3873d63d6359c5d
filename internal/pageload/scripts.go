// internal/pageload/scripts.go
package pageload

import (
	"strings"

	"github.com/xkilldash9x/docdriver/internal/script"
)

// noRedirect is what the meta-refresh scan returns when it finds nothing.
const noRedirect = "proceed"

func readyStateScript(scope script.Scope) string {
	return script.Wrap(scope, "return "+scope.Document()+".readyState;")
}

func metaRefreshScript(scope script.Scope) string {
	return script.Wrap(scope, `var elements = `+scope.Document()+`.getElementsByTagName('META');
for (var i = 0; i < elements.length; i++) {
  var content = elements[i].content;
  if ("refresh" == String(elements[i].httpEquiv).toLowerCase() && content != undefined && content.indexOf(";") != -1) {
    return content;
  }
}
return `+script.Quote(noRedirect)+`;`)
}

// RefreshDelay parses the delay of a meta-refresh content value such as
// "5;url=/next". Only the leading integer of the part before the first ';'
// counts; anything unparseable is zero.
func RefreshDelay(content string) int {
	head, _, _ := strings.Cut(content, ";")
	head = strings.TrimLeft(head, " \t\r\n")

	neg := false
	if head != "" && (head[0] == '+' || head[0] == '-') {
		neg = head[0] == '-'
		head = head[1:]
	}
	n := 0
	for _, r := range head {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > 3600 {
			n = 3600
			break
		}
	}
	if neg {
		return 0
	}
	return n
}
