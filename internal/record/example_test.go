package record_test

import (
	"fmt"

	"github.com/gpml/i18nsync/internal/record"
)

func ExampleValidateTranslation() {
	ok := record.ValidateTranslation("greeting", "Hi")
	fmt.Println(ok.Valid(), ok.Record.Value)

	bad := record.ValidateTranslation("count", 3.0)
	fmt.Println(bad.Valid(), bad.Errors)
	// Output:
	// true Hi
	// false ["count" must be a string (got number)]
}

func ExampleLanguageFromPath() {
	fmt.Println(record.LanguageFromPath("/site/translations/pt-br.yaml"))
	// Output: pt-BR
}
