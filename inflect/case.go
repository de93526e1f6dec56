package inflect

import "github.com/iancoleman/strcase"

// Camelize converts a snake_case wire name to an exported Go identifier,
// e.g. "date_created" -> "DateCreated".
func Camelize(word string) string {
	return strcase.ToCamel(word)
}

// LowerCamelize converts a snake_case wire name to lowerCamelCase,
// e.g. "sms_configuration_id" -> "smsConfigurationId".
func LowerCamelize(word string) string {
	return strcase.ToLowerCamel(word)
}

// Underscore converts a CamelCase identifier to its snake_case wire name,
// e.g. "PhoneNumber" -> "phone_number".
func Underscore(word string) string {
	return strcase.ToSnake(word)
}
