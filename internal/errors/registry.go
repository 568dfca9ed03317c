package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is outside its allowed range.",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No way.json or way.yaml was found in the project directory.",
	},

	// ============================================
	// Expression Errors (E200-E209)
	// ============================================

	"E201": {
		Category: CategoryExpression,
		Message:  "Expression evaluation failed",
		Detail:   "The expression raised an error while being evaluated against its scope. The directive received a null value.",
	},
	"E202": {
		Category: CategoryExpression,
		Message:  "Expression syntax error",
		Detail:   "The expression could not be parsed.",
	},

	// ============================================
	// Directive Errors (E210-E219)
	// ============================================

	"E210": {
		Category: CategoryDirective,
		Message:  "Directive used on the wrong node kind",
		Detail:   "x-for and x-if must be placed on a <template> element; x-form must be placed on a <form>.",
	},
	"E211": {
		Category: CategoryDirective,
		Message:  "Invalid x-for expression",
		Detail:   `x-for expects "item in list", "(item, index) in list" or "item, index in list".`,
	},
	"E212": {
		Category: CategoryDirective,
		Message:  "x-for source is not a list",
		Detail:   "The x-for expression did not evaluate to a slice or array. Previously rendered items were removed.",
	},
	"E213": {
		Category: CategoryDirective,
		Message:  "x-model target is not a signal",
		Detail:   "x-model requires a dotted path that resolves to a writable signal.",
	},
	"E214": {
		Category: CategoryDirective,
		Message:  "Template not found",
		Detail:   "x-temp references a template id that does not exist in the document.",
	},

	// ============================================
	// Registry Errors (E220-E229)
	// ============================================

	"E220": {
		Category: CategoryRegistry,
		Message:  "Component not registered",
		Detail:   "The component name used in x-data or x-comp has no registered setup function.",
	},
	"E221": {
		Category: CategoryRegistry,
		Message:  "Structural component has no template",
		Detail:   "A component whose name contains a hyphen needs a <template id=\"name\"> in the document.",
	},
	"E222": {
		Category: CategoryRegistry,
		Message:  "Form schema not registered",
		Detail:   "x-form references a form name that was never registered.",
	},

	// ============================================
	// Runtime Errors (E230-E239)
	// ============================================

	"E230": {
		Category: CategoryRuntime,
		Message:  "Effect panicked",
		Detail:   "An effect body panicked. The effect stays active and will run again when one of its dependencies changes.",
	},
	"E231": {
		Category: CategoryRuntime,
		Message:  "Flush did not settle",
		Detail:   "Effects kept invalidating each other past the flush round limit. Remaining effects run on the next flush.",
	},
}
