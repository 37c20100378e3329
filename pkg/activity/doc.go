// Package activity holds the shopper activity model shared by guest sessions
// and registered accounts: the cart, recently viewed products, search history
// and the last activity timestamp.
//
// Everything here is pure. Persistence lives in internal/activity for the
// account side and in pkg/guest for the client-held session side.
package activity
