package config

// Merge applies every non-zero field of override onto base and returns
// the result, implementing the defaults -> system -> user -> env -> CLI
// layering (spec.md §6: "CLI overrides environment; environment
// overrides config layers").
func Merge(base, override Settings) Settings {
	out := base

	if override.TimeFormat != "" {
		out.TimeFormat = override.TimeFormat
	}
	if override.TimeZone != "" {
		out.TimeZone = override.TimeZone
	}
	if override.Theme != "" {
		out.Theme = override.Theme
	}
	if len(override.ThemeOverlays) > 0 {
		out.ThemeOverlays = append(out.ThemeOverlays, override.ThemeOverlays...)
	}

	out.Fields = mergeFields(out.Fields, override.Fields)
	out.Formatting = mergeFormatting(out.Formatting, override.Formatting)

	if override.Concurrency != 0 {
		out.Concurrency = override.Concurrency
	}
	if override.BufferSize != "" {
		out.BufferSize = override.BufferSize
	}
	if override.MaxMessageSize != "" {
		out.MaxMessageSize = override.MaxMessageSize
	}
	if override.InterruptIgnoreCount != 0 {
		out.InterruptIgnoreCount = override.InterruptIgnoreCount
	}
	return out
}

func mergeFields(base, override Fields) Fields {
	out := base
	out.Predefined = mergePredefined(out.Predefined, override.Predefined)
	if len(override.Hide) > 0 {
		out.Hide = append(out.Hide, override.Hide...)
	}
	if len(override.Ignore) > 0 {
		out.Ignore = append(out.Ignore, override.Ignore...)
	}
	return out
}

func mergePredefined(base, override PredefinedFields) PredefinedFields {
	out := base
	out.Time = mergeRole(out.Time, override.Time)
	out.Level = mergeRole(out.Level, override.Level)
	out.Message = mergeRole(out.Message, override.Message)
	out.Logger = mergeRole(out.Logger, override.Logger)
	out.Caller = mergeRole(out.Caller, override.Caller)
	out.CallerFile = mergeRole(out.CallerFile, override.CallerFile)
	out.CallerLine = mergeRole(out.CallerLine, override.CallerLine)
	if len(override.Variants) > 0 {
		out.Variants = append(out.Variants, override.Variants...)
	}
	return out
}

func mergeRole(base, override RoleConfig) RoleConfig {
	out := base
	if len(override.Names) > 0 {
		out.Names = override.Names
	}
	if override.Show != "" {
		out.Show = override.Show
	}
	return out
}

func mergeFormatting(base, override Formatting) Formatting {
	out := base
	if override.Flatten != "" {
		out.Flatten = override.Flatten
	}
	if override.Expansion != "" {
		out.Expansion = override.Expansion
	}
	if override.PrettifyFieldKeys != nil {
		out.PrettifyFieldKeys = override.PrettifyFieldKeys
	}
	if override.Message.Style != "" {
		out.Message.Style = override.Message.Style
	}
	if len(override.Punctuation) > 0 {
		if out.Punctuation == nil {
			out.Punctuation = map[string]string{}
		}
		for k, v := range override.Punctuation {
			out.Punctuation[k] = v
		}
	}
	return out
}
