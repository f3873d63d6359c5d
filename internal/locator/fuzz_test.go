// internal/locator/fuzz_test.go
package locator

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"

	"github.com/xkilldash9x/docdriver/internal/script"
)

// FuzzCompile checks that arbitrary locator values never escape their string
// literal: whatever the input, the compiled fragment still binds `element`
// and carries the value only in its quoted form.
func FuzzCompile(f *testing.F) {
	f.Add([]byte("q"))
	f.Add([]byte(`"); alert(1); ("`))
	f.Add([]byte("line\nbreak'quote"))

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)

		what, err := consumer.GetString()
		if err != nil {
			return
		}
		tag, err := consumer.GetString()
		if err != nil {
			return
		}
		n, err := consumer.GetInt()
		if err != nil {
			return
		}
		usePattern, err := consumer.GetBool()
		if err != nil {
			return
		}

		how := Strategies[uint(n)%uint(len(Strategies))]
		loc := New("Element", tag, how, what)
		loc.Index = n % 50
		if usePattern {
			loc = NewPattern("Element", tag, how, what, n%2 == 0)
		}

		frag, err := Compile(script.Top(), loc)
		if err != nil {
			return
		}

		text := string(frag)
		if !strings.Contains(text, "element") {
			t.Fatalf("fragment does not bind element: %s", text)
		}
		if !strings.Contains(text, script.Quote(what)) && how != ByIndex {
			t.Fatalf("value %q not quoted in fragment: %s", what, text)
		}
	})
}
