// Agent is the device side of module OTA. It answers the platform's events for
// the module it manages, runs offered packages through the upgrade
// orchestrator and keeps the module's current version announced whenever the
// connection to the platform is (re)established.
//
// The Agent makes no decision about packages itself short of refusing a
// version that is already installed; admission, verification and install are
// left to the orchestrator and the device's hooks.
package agent
