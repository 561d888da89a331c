package cleanup

// Targets holds the ordered lists of items reset on every device. The lists
// are copied on construction and on access, so a Targets value can be shared
// across devices without being mutated.
type Targets struct {
	settings []string
	files    []string
	packages []string
}

// NewTargets copies the given lists into a Targets value.
func NewTargets(settings, files, packages []string) Targets {
	return Targets{
		settings: clone(settings),
		files:    clone(files),
		packages: clone(packages),
	}
}

// DefaultTargets returns the reference lists: 3 secure settings, 8 system
// files and 12 packages.
func DefaultTargets() Targets {
	return NewTargets(DefaultSettings(), DefaultFiles(), DefaultPackages())
}

// DefaultSettings are secure settings holding device identifiers.
func DefaultSettings() []string {
	return []string{
		"android_id",
		"advertising_id",
		"bluetooth_address",
	}
}

// DefaultFiles are account, SSAID and sync state files under /data/system.
func DefaultFiles() []string {
	return []string{
		"/data/system/users/0/accounts.db",
		"/data/system/users/0/accounts.db-journal",
		"/data/system/users/0/photo.png",
		"/data/system/users/0/settings_ssaid.xml",
		"/data/system/sync/accounts.xml",
		"/data/system/sync/pending.xml",
		"/data/system/sync/stats.bin",
		"/data/system/sync/status.bin",
	}
}

// DefaultPackages are Google services and framework packages whose data is
// cleared.
func DefaultPackages() []string {
	return []string{
		"com.google.android.ext.services",
		"com.google.android.ext.shared",
		"com.google.android.gsf.login",
		"com.google.android.onetimeinitializer",
		"com.android.packageinstaller",
		"com.android.providers.downloads",
		"com.android.vending",
		"com.google.android.backuptransport",
		"com.google.android.gms",
		"com.google.android.gms.setup",
		"com.google.android.instantapps.supervisor",
		"com.google.android.gsf",
	}
}

func (t Targets) Settings() []string { return clone(t.settings) }
func (t Targets) Files() []string    { return clone(t.files) }
func (t Targets) Packages() []string { return clone(t.packages) }

// Count is the number of commands issued per device.
func (t Targets) Count() int {
	return len(t.settings) + len(t.files) + len(t.packages)
}

// IsZero reports whether all three lists are empty.
func (t Targets) IsZero() bool {
	return t.Count() == 0
}

func clone(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
