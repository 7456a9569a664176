// Package password hashes and checks passwords with Argon2id in PHC string
// format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// It is used by the in-process reference backend; production deployments
// delegate credential storage to the identity backend entirely.
package password
