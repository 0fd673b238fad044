// Package grpc contains the objective service transport.
//
//   - objectives/: ObjectiveService (commands, reads, listing)
//   - metadata/: request identity headers and the server interceptor
package grpc
