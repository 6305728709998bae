// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import (
	"context"

	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// Trap names the handler property a proxy trap forwards to (spec.md
// §4.D: "Traps include get, set, has, deleteProperty, ownKeys,
// getPrototypeOf, setPrototypeOf, isExtensible, preventExtensions,
// defineProperty, apply, construct").
type Trap string

const (
	TrapGet              Trap = "get"
	TrapSet              Trap = "set"
	TrapHas              Trap = "has"
	TrapDeleteProperty    Trap = "deleteProperty"
	TrapOwnKeys          Trap = "ownKeys"
	TrapGetPrototypeOf   Trap = "getPrototypeOf"
	TrapSetPrototypeOf   Trap = "setPrototypeOf"
	TrapIsExtensible     Trap = "isExtensible"
	TrapPreventExtensions Trap = "preventExtensions"
	TrapDefineProperty   Trap = "defineProperty"
	TrapApply            Trap = "apply"
	TrapConstruct        Trap = "construct"
)

// AsProxy returns in's ProxyData if it wraps a Proxy, else nil/false.
func (in *Inner) AsProxy() (*ProxyData, bool) {
	if in.wrappedKind != WrappedProxy {
		return nil, false
	}
	return in.wrapped.(*ProxyData), true
}

// NewProxy installs a ProxyData wrapping target/handler.
func (in *Inner) NewProxy(target, handler heap.Handle) *ProxyData {
	p := &ProxyData{Target: target, Handler: handler}
	in.SetWrapped(p)
	return p
}

// ResolveTrap looks up trap on the proxy's handler object: if it is an
// own data property, it returns that value and forwards=false (whether
// the value is callable is not checked here); otherwise it returns
// forwards=true, meaning the caller should fall back to invoking the
// same operation directly on p.Target (spec.md §4.D: "forwards to
// the handler object if the handler has the trap property; otherwise
// forwards to the target").
func (s *Store) ResolveTrap(p *ProxyData, trap Trap, keys *propkey.Table) (fn value.Value, forwards bool) {
	handler := s.Resolve(p.Handler)
	key := keys.Register(string(trap))
	if prop, ok := handler.OwnProperty(key); ok && !prop.IsAccessor() {
		return prop.Value, false
	}
	return value.Undefined, true
}

// InvokeTrap is a convenience that resolves and, if present, calls
// the named trap with handler as `this`, returning forwards=true when
// the caller must perform the operation on Target itself instead.
func (s *Store) InvokeTrap(ctx context.Context, p *ProxyData, trap Trap, keys *propkey.Table, args []value.Value, invoke Invoker) (result value.Value, forwards bool, err error) {
	fn, forwards := s.ResolveTrap(p, trap, keys)
	if forwards {
		return value.Undefined, true, nil
	}
	handlerVal := value.Object(value.ObjectPayload(p.Handler))
	result, err = invoke(ctx, fn, handlerVal, args)
	return result, false, err
}
