package mcpserver

// ProgressFormatContract describes the progress data model that LLM
// consumers should follow when logging values.
const ProgressFormatContract = `# Lumen Progress Format Contract

Every progress entry recorded through Lumen MUST follow this model.

## Model

- A day is addressed by a canonical date string: ` + "`" + `YYYY-MM-DD` + "`" + ` (zero-padded,
  e.g. ` + "`" + `2024-01-05` + "`" + `). No other date format is accepted.
- A habit is addressed by its numeric id (see the list_habits tool).
- A value is a bare scalar, one of two kinds:
  - **bool** for yes/no habits: ` + "`" + `true` + "`" + ` means done, ` + "`" + `false` + "`" + ` means explicitly
    skipped. An absent entry is NOT the same as ` + "`" + `false` + "`" + `.
  - **number** for quantified habits: the amount achieved that day, measured
    in the habit's unit (e.g. pages, km, glasses). Amounts at or above the
    habit's daily target count as completed.

## Rules

1. **One value per (day, habit).** Logging again overwrites the previous value.
2. **A bool and a number are interchangeable kinds**, not a union: pick the
   kind that matches how the habit is tracked.
3. **Completion** means ` + "`" + `true` + "`" + ` for bool values, or amount >= target for
   numeric values. ` + "`" + `false` + "`" + ` and below-target amounts break streaks.
4. **Percentages** are whole numbers 0..100, rounded half-up.
`
