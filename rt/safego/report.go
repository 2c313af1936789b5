package safego

import "go.uber.org/zap"

func loggerOrGlobal(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return zap.L()
}

func logPanic(l *zap.Logger, info PanicInfo) {
	fields := make([]zap.Field, 0, 4)
	fields = appendNameTags(fields, info.Name, info.Tags)
	fields = append(fields, zap.Any("value", info.Value))
	if len(info.Stack) > 0 {
		fields = append(fields, zap.ByteString("stack", info.Stack))
	}
	loggerOrGlobal(l).Error("safego: panic", fields...)
}

func logError(l *zap.Logger, info ErrorInfo) {
	fields := make([]zap.Field, 0, 3)
	fields = appendNameTags(fields, info.Name, info.Tags)
	fields = append(fields, zap.Error(info.Err))
	loggerOrGlobal(l).Error("safego: error", fields...)
}

// TagFields converts tags into zap fields, keeping their order. Keys are used as field names.
func TagFields(tags []Tag) []zap.Field {
	if len(tags) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(tags))
	for _, t := range tags {
		if t.Key == "" {
			continue
		}
		out = append(out, zap.String(t.Key, t.Value))
	}
	return out
}

func appendNameTags(fields []zap.Field, name string, tags []Tag) []zap.Field {
	if name != "" {
		fields = append(fields, zap.String("name", name))
	}
	if len(tags) > 0 {
		fields = append(fields, zap.Dict("tags", TagFields(tags)...))
	}
	return fields
}
