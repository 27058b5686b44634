package extract

import (
	"sort"

	"github.com/jward/codegraph/internal/graph"
)

var goSpec = LanguageSpec{
	Name: "go",
	Entities: []EntityRule{
		{Kind: graph.KindModule, Query: `(package_clause (package_identifier) @name) @node`},
		{Kind: graph.KindFunction, Query: `(function_declaration name: (identifier) @name) @node`},
		{Kind: graph.KindMethod, Query: `(method_declaration name: (field_identifier) @name) @node`},
		{Kind: graph.KindClass, Query: `(type_spec name: (type_identifier) @name type: (struct_type)) @node`},
		{Kind: graph.KindInterface, Query: `(type_spec name: (type_identifier) @name type: (interface_type)) @node`},
		{Kind: graph.KindTypeDefinition, Query: `
			(type_spec name: (type_identifier) @name type: [
				(type_identifier) (qualified_type) (generic_type) (pointer_type)
				(slice_type) (array_type) (map_type) (channel_type) (function_type)
			]) @node`},
		{Kind: graph.KindTypeDefinition, Query: `(type_alias name: (type_identifier) @name) @node`},
	},
	Calls: `
		(call_expression function: (identifier) @callee)
		(call_expression function: (selector_expression field: (field_identifier) @callee))`,
	References: `
		(identifier) @ref
		(field_identifier) @ref
		(type_identifier) @ref`,
	Imports: `(import_spec path: (_) @path)`,
	Owner:   goReceiverType,
}

var pythonSpec = LanguageSpec{
	Name: "python",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `(function_definition name: (identifier) @name) @node`, Owned: true},
		{Kind: graph.KindClass, Query: `(class_definition name: (identifier) @name) @node`},
	},
	Calls: `
		(call function: (identifier) @callee)
		(call function: (attribute attribute: (identifier) @callee))`,
	References: `(identifier) @ref`,
	Imports: `
		(import_statement name: (dotted_name) @path)
		(import_statement name: (aliased_import name: (dotted_name) @path))
		(import_from_statement module_name: (_) @path)`,
	Owner: ownerWithin([]string{"class_definition"}, []string{"function_definition"}),
}

var jsEntities = []EntityRule{
	{Kind: graph.KindFunction, Query: `(function_declaration name: (identifier) @name) @node`},
	{Kind: graph.KindFunction, Query: `(generator_function_declaration name: (identifier) @name) @node`},
	{Kind: graph.KindFunction, Query: `(variable_declarator name: (identifier) @name value: (arrow_function)) @node`},
	{Kind: graph.KindFunction, Query: `(method_definition name: (_) @name) @node`, Owned: true},
	{Kind: graph.KindClass, Query: `(class_declaration name: (_) @name) @node`},
}

const (
	jsCalls = `
		(call_expression function: (identifier) @callee)
		(call_expression function: (member_expression property: (property_identifier) @callee))
		(new_expression constructor: (identifier) @callee)`
	jsImports = `
		(import_statement source: (string) @path)
		((call_expression function: (identifier) @fn arguments: (arguments (string) @path))
			(#eq? @fn "require"))`
)

var jsOwner = ownerWithin([]string{"class_declaration", "abstract_class_declaration", "class"}, nil)

var javascriptSpec = LanguageSpec{
	Name:     "javascript",
	Entities: jsEntities,
	Calls:    jsCalls,
	References: `
		(identifier) @ref
		(property_identifier) @ref`,
	Imports: jsImports,
	Owner:   jsOwner,
}

var tsEntities = append(append([]EntityRule{}, jsEntities...),
	EntityRule{Kind: graph.KindClass, Query: `(abstract_class_declaration name: (_) @name) @node`},
	EntityRule{Kind: graph.KindInterface, Query: `(interface_declaration name: (_) @name) @node`},
	EntityRule{Kind: graph.KindTypeDefinition, Query: `(type_alias_declaration name: (_) @name) @node`},
	EntityRule{Kind: graph.KindTypeDefinition, Query: `(enum_declaration name: (_) @name) @node`},
	EntityRule{Kind: graph.KindModule, Query: `(internal_module name: (_) @name) @node`},
)

const tsReferences = `
	(identifier) @ref
	(property_identifier) @ref
	(type_identifier) @ref`

var typescriptSpec = LanguageSpec{
	Name:       "typescript",
	Entities:   tsEntities,
	Calls:      jsCalls,
	References: tsReferences,
	Imports:    jsImports,
	Owner:      jsOwner,
}

var tsxSpec = LanguageSpec{
	Name:       "tsx",
	Entities:   tsEntities,
	Calls:      jsCalls,
	References: tsReferences,
	Imports:    jsImports,
	Owner:      jsOwner,
}

var rustSpec = LanguageSpec{
	Name: "rust",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `(function_item name: (identifier) @name) @node`, Owned: true},
		{Kind: graph.KindClass, Query: `(struct_item name: (type_identifier) @name) @node`},
		{Kind: graph.KindClass, Query: `(enum_item name: (type_identifier) @name) @node`},
		{Kind: graph.KindInterface, Query: `(trait_item name: (type_identifier) @name) @node`},
		{Kind: graph.KindTypeDefinition, Query: `(type_item name: (type_identifier) @name) @node`},
		{Kind: graph.KindModule, Query: `(mod_item name: (identifier) @name) @node`},
	},
	Calls: `
		(call_expression function: (identifier) @callee)
		(call_expression function: (field_expression field: (field_identifier) @callee))
		(call_expression function: (scoped_identifier name: (identifier) @callee))`,
	References: `
		(identifier) @ref
		(field_identifier) @ref
		(type_identifier) @ref`,
	Imports: `(use_declaration argument: (_) @path)`,
	Owner:   rustOwner,
}

var javaSpec = LanguageSpec{
	Name: "java",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `(method_declaration name: (identifier) @name) @node`, Owned: true},
		{Kind: graph.KindFunction, Query: `(constructor_declaration name: (identifier) @name) @node`, Owned: true},
		{Kind: graph.KindClass, Query: `(class_declaration name: (identifier) @name) @node`},
		{Kind: graph.KindClass, Query: `(enum_declaration name: (identifier) @name) @node`},
		{Kind: graph.KindInterface, Query: `(interface_declaration name: (identifier) @name) @node`},
	},
	Calls: `
		(method_invocation name: (identifier) @callee)
		(object_creation_expression type: (type_identifier) @callee)`,
	References: `
		(identifier) @ref
		(type_identifier) @ref`,
	Imports: `
		(import_declaration (scoped_identifier) @path)
		(import_declaration (identifier) @path)`,
	Owner: ownerWithin([]string{"class_declaration", "interface_declaration", "enum_declaration"}, nil),
}

const cCalls = `
	(call_expression function: (identifier) @callee)
	(call_expression function: (field_expression field: (field_identifier) @callee))`

const cReferences = `
	(identifier) @ref
	(field_identifier) @ref
	(type_identifier) @ref`

var cSpec = LanguageSpec{
	Name: "c",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `
			(function_definition
				declarator: (function_declarator declarator: (identifier) @name)) @node`},
		{Kind: graph.KindFunction, Query: `
			(function_definition
				declarator: (pointer_declarator
					declarator: (function_declarator declarator: (identifier) @name))) @node`},
		{Kind: graph.KindClass, Query: `(struct_specifier name: (type_identifier) @name body: (_)) @node`},
		{Kind: graph.KindTypeDefinition, Query: `(enum_specifier name: (type_identifier) @name body: (_)) @node`},
		{Kind: graph.KindTypeDefinition, Query: `(type_definition declarator: (type_identifier) @name) @node`},
	},
	Calls:      cCalls,
	References: cReferences,
	Imports:    `(preproc_include path: (_) @path)`,
}

var cppSpec = LanguageSpec{
	Name: "cpp",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `
			(function_definition
				declarator: (function_declarator declarator: (identifier) @name)) @node`, Owned: true},
		{Kind: graph.KindFunction, Query: `
			(function_definition
				declarator: (function_declarator declarator: (field_identifier) @name)) @node`, Owned: true},
		{Kind: graph.KindMethod, Query: `
			(function_definition
				declarator: (function_declarator
					declarator: (qualified_identifier scope: (_) @owner name: (identifier) @name))) @node`},
		{Kind: graph.KindClass, Query: `(class_specifier name: (type_identifier) @name body: (_)) @node`},
		{Kind: graph.KindClass, Query: `(struct_specifier name: (type_identifier) @name body: (_)) @node`},
		{Kind: graph.KindTypeDefinition, Query: `(type_definition declarator: (type_identifier) @name) @node`},
		{Kind: graph.KindTypeDefinition, Query: `(alias_declaration name: (type_identifier) @name) @node`},
		{Kind: graph.KindModule, Query: `(namespace_definition name: (_) @name) @node`},
	},
	Calls:      cCalls,
	References: cReferences,
	Imports:    `(preproc_include path: (_) @path)`,
	Owner: ownerWithin(
		[]string{"class_specifier", "struct_specifier"},
		[]string{"compound_statement"},
	),
}

var phpSpec = LanguageSpec{
	Name: "php",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `(function_definition name: (name) @name) @node`},
		{Kind: graph.KindFunction, Query: `(method_declaration name: (name) @name) @node`, Owned: true},
		{Kind: graph.KindClass, Query: `(class_declaration name: (name) @name) @node`},
		{Kind: graph.KindClass, Query: `(trait_declaration name: (name) @name) @node`},
		{Kind: graph.KindInterface, Query: `(interface_declaration name: (name) @name) @node`},
		{Kind: graph.KindModule, Query: `(namespace_definition name: (namespace_name) @name) @node`},
	},
	Calls: `
		(function_call_expression function: (name) @callee)
		(member_call_expression name: (name) @callee)
		(scoped_call_expression name: (name) @callee)`,
	References: `(name) @ref`,
	Imports:    `(namespace_use_clause (qualified_name) @path)`,
	Owner: ownerWithin(
		[]string{"class_declaration", "trait_declaration", "interface_declaration"},
		nil,
	),
}

var rubySpec = LanguageSpec{
	Name: "ruby",
	Entities: []EntityRule{
		{Kind: graph.KindFunction, Query: `(method name: (_) @name) @node`, Owned: true},
		{Kind: graph.KindFunction, Query: `(singleton_method name: (_) @name) @node`, Owned: true},
		{Kind: graph.KindClass, Query: `(class name: (_) @name) @node`},
		{Kind: graph.KindModule, Query: `(module name: (_) @name) @node`},
	},
	Calls: `(call method: (identifier) @callee)`,
	References: `
		(identifier) @ref
		(constant) @ref`,
	Imports: `
		((call
			method: (identifier) @fn
			arguments: (argument_list (string (string_content) @path)))
			(#match? @fn "^require(_relative)?$"))`,
	Owner: ownerWithin([]string{"class", "module"}, []string{"method", "singleton_method"}),
}

var builtinSpecs = map[string]LanguageSpec{
	goSpec.Name:         goSpec,
	pythonSpec.Name:     pythonSpec,
	javascriptSpec.Name: javascriptSpec,
	typescriptSpec.Name: typescriptSpec,
	tsxSpec.Name:        tsxSpec,
	rustSpec.Name:       rustSpec,
	javaSpec.Name:       javaSpec,
	cSpec.Name:          cSpec,
	cppSpec.Name:        cppSpec,
	phpSpec.Name:        phpSpec,
	rubySpec.Name:       rubySpec,
}

// BuiltinLanguages returns the language tags with a built-in tree-sitter
// extractor, sorted.
func BuiltinLanguages() []string {
	langs := make([]string, 0, len(builtinSpecs))
	for l := range builtinSpecs {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Spec returns the built-in LanguageSpec for a tag.
func Spec(lang string) (LanguageSpec, bool) {
	s, ok := builtinSpecs[lang]
	return s, ok
}
