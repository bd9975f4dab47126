package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Create       CreateDeps
	Validate     ValidateDeps
	Profile      ProfileDeps
	Check        CheckDeps
	Deactivation DeactivationDeps
	Logout       LogoutDeps
	Audio        AudioDeps
}
