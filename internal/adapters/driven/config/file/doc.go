// Package file keeps docqa state on the local filesystem under ~/.docqa.
//
//   - ConfigStore: config.toml, read and written with flattened dot keys
//   - PromptStore: prompt templates, embedded defaults overridable on disk and
//     reloaded when the files change
package file
