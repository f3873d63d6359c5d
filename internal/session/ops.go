// internal/session/ops.go
package session

import (
	"strings"

	"github.com/xkilldash9x/docdriver/internal/script"
	"github.com/xkilldash9x/docdriver/internal/sentinel"
)

// Operation fragments run with `element` bound to the located node. Anything
// that touches a document goes through the scope so it stays inside frames.

const (
	opText     = `return element.innerText;`
	opHTML     = `return element.innerHTML;`
	opValue    = `return element.value;`
	opChecked  = `return element.checked;`
	opDisabled = `return element.disabled;`
	opFocus    = `element.focus();`
	opBlur     = `element.blur();`
	opSubmit   = `element.submit();`
	opClear    = `element.value = '';`

	opHighlight = `element.originalColor = element.style.backgroundColor;
element.style.backgroundColor = 'yellow';`
	opUnhighlight = `element.style.backgroundColor = element.originalColor;`
)

func opAttribute(name string) string {
	return "return element.getAttribute(" + script.Quote(name) + ");"
}

func opAppend(text string) string {
	return `element.value += ` + script.Quote(text) + `;
dispatchOnChange(element);
element.setSelectionRange(element.value.length, element.value.length);`
}

// opClick prefers the native click. Without one, an onclick handler is called
// directly so that it does not fire twice through a dispatched event.
func opClick(scope script.Scope) string {
	doc := scope.Document()
	return `if (element.click) {
  element.click();
} else if (element.onclick) {
  var event = ` + doc + `.createEvent('HTMLEvents');
  event.initEvent('click', true, true);
  element.onclick(event);
} else {
  var event = ` + doc + `.createEvent('MouseEvents');
  event.initEvent('click', true, true);
  element.dispatchEvent(event);
}`
}

// opClickLink follows a link the way the browser would: the link's target,
// else the document's BASE target, else the top-level window. An onclick
// handler returning false cancels the navigation.
func opClickLink(scope script.Scope) string {
	doc := scope.Document()
	return `function baseTarget() {
  var bases = ` + doc + `.getElementsByTagName('BASE');
  if (bases.length > 0) {
    return bases[0].target;
  }
  return undefined;
}
function undefinedTarget(target) {
  return target == undefined || target == '';
}
function nextLocation(element) {
  var target = element.target;
  if (undefinedTarget(target) && baseTarget()) {
    top[baseTarget()].location = element.href;
  } else if (undefinedTarget(target) || target == '_top') {
    top.location = element.href;
  } else {
    top[target].location = element.href;
  }
}
var click = ` + doc + `.createEvent('HTMLEvents');
click.initEvent('click', true, true);
if (!element.onclick || false != element.onclick(click)) {
  nextLocation(element);
}`
}

// OptionBy names the option property SelectOption and friends compare against.
type OptionBy string

const (
	OptionText  OptionBy = "text"
	OptionValue OptionBy = "value"
)

func (o OptionBy) property() string {
	if o == OptionValue {
		return "value"
	}
	return "text"
}

// opSelect selects the matching option and fires change only when the
// selection actually moved.
func opSelect(by OptionBy, what string) string {
	return `var selected = -1;
var previous = -2;
for (var i = 0; i < element.options.length; i++) {
  if (element.options[i].selected) {
    previous = i;
  }
  if (element.options[i].` + by.property() + ` == ` + script.Quote(what) + `) {
    element.options[i].selected = true;
    selected = i;
  }
}
if (selected == -1) {
  ` + sentinel.Return(sentinel.ElementNotFound) + `
} else if (previous != selected) {
  element.selectedIndex = selected;
  dispatchOnChange(element.options[selected]);
}`
}

func opOptionExists(by OptionBy, what string) string {
	return `for (var i = 0; i < element.options.length; i++) {
  if (element.options[i].` + by.property() + ` == ` + script.Quote(what) + `) {
    return true;
  }
}
` + sentinel.Return(sentinel.ElementNotFound)
}

func opOptionSelected(by OptionBy, what string) string {
	return `for (var i = 0; i < element.options.length; i++) {
  if (element.options[i].` + by.property() + ` == ` + script.Quote(what) + ` && element.options[i].selected) {
    return true;
  }
}
return false;`
}

func opSelectedTexts() string {
	return `var values = [];
for (var i = 0; i < element.options.length; i++) {
  if (element.options[i].selected) {
    values.push(element.options[i].text);
  }
}
return values;`
}

// Document-level bodies, wrapped without a locator.

func bodyText(scope script.Scope) string {
	return "return " + scope.Document() + ".getElementsByTagName('BODY').item(0).innerText;"
}

func bodyHTML(scope script.Scope) string {
	return "return " + scope.Document() + ".documentElement.outerHTML;"
}

func bodyTitle(scope script.Scope) string {
	return "return " + scope.Document() + ".title;"
}

func bodyReload(scope script.Scope) string {
	return scope.Window() + ".location.reload();\n" + sentinel.Return(sentinel.NoResponse)
}

func bodyContains(scope script.Scope, pattern string) string {
	var b strings.Builder
	b.WriteString("var body = " + scope.Document() + ".getElementsByTagName('BODY').item(0);\n")
	b.WriteString("var text = body ? body.innerText : '';\n")
	b.WriteString("return " + pattern + ";")
	return b.String()
}

// bodyFrameExists only needs the scope prelude, which guards every frame in
// the chain.
const bodyFrameExists = "return true;"
