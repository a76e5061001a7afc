// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// ProcessorFactory is the type of a function creating a Processor running
// contract code on the given Interpreter.
type ProcessorFactory func(interpreter Interpreter) Processor

// GetProcessor creates a processor registered under the given name
// (case-insensitive) using the given interpreter. The result is nil if no
// factory was registered under the given name.
func GetProcessor(name string, interpreter Interpreter) Processor {
	factory := GetProcessorFactory(name)
	if factory == nil {
		return nil
	}
	return factory(interpreter)
}

// GetProcessorFactory performs a lookup for the given name (case-insensitive).
func GetProcessorFactory(name string) ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return processorRegistry[strings.ToLower(name)]
}

// GetAllRegisteredProcessorFactories obtains all registered factories.
func GetAllRegisteredProcessorFactories() map[string]ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return maps.Clone(processorRegistry)
}

// RegisterProcessorFactory registers a new Processor implementation. The
// name is not case-sensitive. A panic is triggered if a factory was bound
// to the same name before, or the factory is nil. This function is mainly
// intended to be used by package initialization code.
func RegisterProcessorFactory(name string, factory ProcessorFactory) {
	key := strings.ToLower(name)
	if factory == nil {
		panic(fmt.Sprintf("invalid initialization: cannot register nil-factory using `%s`", key))
	}
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	if _, found := processorRegistry[key]; found {
		panic(fmt.Sprintf("invalid initialization: multiple factories registered for `%s`", key))
	}
	processorRegistry[key] = factory
}

var processorRegistry = map[string]ProcessorFactory{}

var processorRegistryLock sync.Mutex
