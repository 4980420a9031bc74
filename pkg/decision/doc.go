// Package decision implements the autonomous decision engine the
// workflow calls after classification, prioritization, and playbook
// selection: it scores business impact and risk across several
// dimensions, decides whether an incident can proceed without a human
// in the loop, and generates and ranks candidate remediation plans for
// the executor to run.
package decision
