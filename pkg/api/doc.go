// Package api defines the wire types shared by the prompt-tester gateway,
// the request composer, and the terminal client: the model invocation
// request, the client-side response envelope, the fixed model catalog,
// and the FastAPI-compatible detail error shape.
package api
