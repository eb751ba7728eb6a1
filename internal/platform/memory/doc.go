// Package memory provides in-process implementations of the store
// interfaces. They back service and task tests that need real store
// semantics without PostgreSQL, and honor the same error contracts as the
// postgres package.
package memory
