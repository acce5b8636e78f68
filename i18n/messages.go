package i18n

var en = map[string]string{
	"required":      "This field is required.",
	"null":          "This field may not be null.",
	"blank":         "This field may not be blank.",
	"invalid":       "Invalid value.",
	"unknown_field": "Unknown field.",
	"parse_error":   "Malformed input.",
	"duplicate_key": "Duplicate key.",
	"truncated":     "Input too large.",
	"unique":        "This field must be unique.",

	"serializer.invalid": "Invalid data. Expected a dictionary, but got {datatype}.",

	"list.not_a_list": `Expected a list of items but got type "{input_type}".`,
	"list.empty":      "This list may not be empty.",
	"list.min_length": "Ensure this field has at least {min_length} elements.",
	"list.max_length": "Ensure this field has no more than {max_length} elements.",

	"boolean.invalid": "Must be a valid boolean.",

	"char.invalid":    "Not a valid string.",
	"char.max_length": "Ensure this field has no more than {max_length} characters.",
	"char.min_length": "Ensure this field has at least {min_length} characters.",
	"email.invalid":   "Enter a valid email address.",
	"regex.invalid":   "This value does not match the required pattern.",
	"slug.invalid":    `Enter a valid "slug" consisting of letters, numbers, underscores or hyphens.`,
	"url.invalid":     "Enter a valid URL.",
	"uuid.invalid":    "Must be a valid UUID.",
	"ip.invalid":      "Enter a valid IPv4 or IPv6 address.",

	"integer.invalid":           "Enter a whole number.",
	"integer.max_value":         "Ensure this value is less than or equal to {max_value}.",
	"integer.min_value":         "Ensure this value is greater than or equal to {min_value}.",
	"integer.max_string_length": "String value too large.",
	"float.invalid":             "A valid number is required.",
	"float.max_value":           "Ensure this value is less than or equal to {max_value}.",
	"float.min_value":           "Ensure this value is greater than or equal to {min_value}.",
	"float.max_string_length":   "String value too large.",
	"decimal.invalid":           "A valid number is required.",
	"decimal.max_value":         "Ensure this value is less than or equal to {max_value}.",
	"decimal.min_value":         "Ensure this value is greater than or equal to {min_value}.",
	"decimal.max_string_length": "String value too large.",
	"decimal.max_digits":        "Ensure that there are no more than {max_digits} digits in total.",
	"decimal.max_decimal_places": "Ensure that there are no more than {max_decimal_places} decimal places.",
	"decimal.max_whole_digits":  "Ensure that there are no more than {max_whole_digits} digits before the decimal point.",

	"datetime.invalid": "Datetime has wrong format. Use one of these formats instead: {format}.",
	"datetime.date":    "Expected a datetime but got a date.",
	"date.invalid":     "Date has wrong format. Use one of these formats instead: {format}.",
	"date.datetime":    "Expected a date but got a datetime.",
	"time.invalid":     "Time has wrong format. Use one of these formats instead: {format}.",
	"duration.invalid": "Duration has wrong format. Use one of these formats instead: {format}.",

	"choice.invalid_choice":          `"{input}" is not a valid choice.`,
	"multiple_choice.invalid_choice": `"{input}" is not a valid choice.`,
	"multiple_choice.not_a_list":     `Expected a list of items but got type "{input_type}".`,
	"multiple_choice.empty":          "This selection may not be empty.",

	"dict.not_a_dict": `Expected a dictionary of items but got type "{input_type}".`,
	"dict.empty":      "This dictionary may not be empty.",
	"json.invalid":    "Value must be valid JSON.",

	"pk.does_not_exist":            `Invalid pk "{pk_value}" - object does not exist.`,
	"pk.incorrect_type":            "Incorrect type. Expected pk value, received {data_type}.",
	"slug_related.does_not_exist":  "Object with {slug_name}={value} does not exist.",
	"slug_related.invalid":         "Invalid value.",
	"hyperlink.no_match":           "Invalid hyperlink - No URL match.",
	"hyperlink.incorrect_match":    "Invalid hyperlink - Incorrect URL match.",
	"hyperlink.does_not_exist":     "Invalid hyperlink - Object does not exist.",
	"hyperlink.incorrect_type":     "Incorrect type. Expected URL string, received {data_type}.",
	"many_related.not_a_list":      `Expected a list of items but got type "{input_type}".`,
	"many_related.empty":           "This list may not be empty.",
	"unique_together.unique":       "The fields {field_names} must make a unique set.",

	"validators.max_length":   "Ensure this value has at most {limit_value} characters (it has {show_value}).",
	"validators.min_length":   "Ensure this value has at least {limit_value} characters (it has {show_value}).",
	"validators.max_value":    "Ensure this value is less than or equal to {limit_value}.",
	"validators.min_value":    "Ensure this value is greater than or equal to {limit_value}.",
	"validators.regex":        "Enter a valid value.",
	"validators.required":     "This field is required.",
	"validators.at_least_one": "Ensure this list has at least one item.",
	"validators.unique_by":    "Duplicate value for {key}.",
}

var ja = map[string]string{
	"required":        "このフィールドは必須です。",
	"null":            "このフィールドは null にできません。",
	"blank":           "このフィールドは空にできません。",
	"invalid":         "不正な値です。",
	"unknown_field":   "未知のフィールドです。",
	"parse_error":     "解析エラー",
	"unique":          "この値は一意でなければなりません。",
	"list.not_a_list": "リストが必要ですが \"{input_type}\" が渡されました。",
	"list.empty":      "リストを空にすることはできません。",
	"integer.invalid": "整数を入力してください。",

	"validators.at_least_one": "リストには少なくとも1つの要素が必要です。",
	"validators.unique_by":    "{key} の値が重複しています。",
}
